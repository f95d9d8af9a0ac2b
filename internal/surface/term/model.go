package term

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/queue"
	"github.com/jmylchreest/entrykit/internal/scheduler"
	"github.com/jmylchreest/entrykit/internal/surface"
)

// eventLogSize is the number of lifecycle events kept on screen.
const eventLogSize = 8

// Options configures the demo host.
type Options struct {
	Timings   surface.Timings
	Heuristic queue.Heuristic
	// Duration is the display duration of demo entries. Zero keeps them
	// until dismissed.
	Duration time.Duration
	Logger   *slog.Logger
}

// host is the state shared by every copy of Model.
type host struct {
	surface    *Surface
	dispatcher *Dispatcher
	kit        *scheduler.Kit
	duration   time.Duration
	events     []string
	submitted  int
}

func (h *host) OnEvent(ev scheduler.Event) {
	line := fmt.Sprintf("%s %-11s %s", ev.At.Format("15:04:05.000"), ev.Kind, ev.Entry.Content.Summary)
	if ev.Reason != scheduler.ReasonNone {
		line += " (" + string(ev.Reason) + ")"
	}
	h.events = append(h.events, line)
	if len(h.events) > eventLogSize {
		h.events = h.events[len(h.events)-eventLogSize:]
	}
}

// Model is the demo host: a banner area driven by a scheduler, the backlog
// and a log of lifecycle events.
type Model struct {
	host *host
	keys KeyMap
	help help.Model

	width  int
	height int
	ready  bool
}

// New creates the demo host with its own scheduler.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	surf := NewSurface(opts.Timings, nil)
	d := NewDispatcher()
	sched := scheduler.New(surf, d, scheduler.Options{Heuristic: opts.Heuristic, Logger: logger})
	h := &host{
		surface:    surf,
		dispatcher: d,
		kit:        scheduler.NewKit(sched, d),
		duration:   opts.Duration,
	}
	h.kit.AddObserver(h)

	return Model{
		host: h,
		keys: DefaultKeyMap(),
		help: help.New(),
	}
}

// Kit returns the caller handle of the demo scheduler.
func (m Model) Kit() *scheduler.Kit {
	return m.host.kit
}

// Dispatcher returns the dispatcher to attach to the program.
func (m Model) Dispatcher() *Dispatcher {
	return m.host.dispatcher
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case drainMsg:
		m.host.dispatcher.drain()

	case frameMsg:
		m.host.surface.onFrame()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.host.surface.SetWidth(msg.Width)

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}
	}

	return m, m.host.surface.tick()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	kit := m.host.kit
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Enqueue):
		m.submit(model.Enqueue(model.PriorityNormal))
	case key.Matches(msg, m.keys.EnqueueHigh):
		m.submit(model.Enqueue(model.PriorityHigh))
	case key.Matches(msg, m.keys.Unprioritized):
		m.submit(model.EnqueueUnprioritized())
	case key.Matches(msg, m.keys.Override):
		m.submit(model.Override(model.PriorityHigh, false))
	case key.Matches(msg, m.keys.OverrideDrop):
		m.submit(model.Override(model.PriorityMax, true))
	case key.Matches(msg, m.keys.DismissDisplayed):
		kit.Dismiss(model.Displayed(), nil)
	case key.Matches(msg, m.keys.DismissLow):
		kit.Dismiss(model.PrioritizedAtOrBelow(model.PriorityNormal), nil)
	case key.Matches(msg, m.keys.DismissEnqueued):
		kit.Dismiss(model.Enqueued(), nil)
	case key.Matches(msg, m.keys.DismissAll):
		kit.Dismiss(model.All(), nil)
	case key.Matches(msg, m.keys.Transform):
		if active := kit.Snapshot().Active; active != nil {
			c := active.Content
			c.Body = "updated at " + time.Now().Format("15:04:05")
			kit.Transform(c)
		}
	case key.Matches(msg, m.keys.Heuristic):
		next := queue.HeuristicFIFO
		if kit.Snapshot().Heuristic == queue.HeuristicFIFO {
			next = queue.HeuristicPriority
		}
		kit.SetHeuristic(next)
	}
	return nil
}

func (m *Model) submit(p model.Precedence) {
	m.host.submitted++
	n := m.host.submitted
	e, err := model.NewEntry(fmt.Sprintf("demo-%d", n),
		model.Attributes{Precedence: p, DisplayDuration: m.host.duration},
		model.Content{Summary: fmt.Sprintf("Entry #%d", n), Body: p.String()},
	)
	if err != nil {
		return
	}
	m.host.kit.Display(e)
}

// View renders the model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("entrykit demo") + "\n\n")
	b.WriteString(m.viewBanners() + "\n")

	snap := m.host.kit.Snapshot()
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Queue (%s, %d)", snap.Heuristic, len(snap.Queued))) + "\n")
	if len(snap.Queued) == 0 {
		b.WriteString("  empty\n")
	}
	for _, e := range snap.Queued {
		fmt.Fprintf(&b, "  %-10s %s\n", e.Content.Summary, e.Attributes.Precedence)
	}

	b.WriteString("\n" + sectionStyle.Render("Events") + "\n")
	for _, line := range m.host.events {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m Model) viewBanners() string {
	width := m.width - 4
	if width > 60 {
		width = 60
	}

	var rows []string
	for _, banner := range m.host.surface.Outgoing() {
		rows = append(rows, renderBanner(banner, width, true))
	}
	if banner, ok := m.host.surface.Current(); ok {
		rows = append(rows, renderBanner(banner, width, false))
	}
	if len(rows) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("  nothing displayed") + "\n"
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// bandColors maps priority bands to border colors.
var bandColors = map[model.Band]lipgloss.Color{
	model.BandLow:    lipgloss.Color("8"),
	model.BandNormal: lipgloss.Color("12"),
	model.BandHigh:   lipgloss.Color("11"),
	model.BandMax:    lipgloss.Color("9"),
}

func renderBanner(b Banner, width int, fading bool) string {
	w := int(float64(width) * b.Progress)
	if w < 4 {
		w = 4
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(bandColors[b.Entry.Rank().Band()]).
		Padding(0, 1).
		Width(w)
	if fading {
		style = style.Faint(true)
	}

	text := lipgloss.NewStyle().Bold(true).Render(b.Entry.Content.Summary)
	if b.Entry.Content.Body != "" {
		text += "\n" + b.Entry.Content.Body
	}
	return style.Render(text)
}

// Run starts the demo host in the terminal.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.Dispatcher().Attach(p.Send)

	_, err := p.Run()
	return err
}
