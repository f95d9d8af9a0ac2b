package term

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

type drainMsg struct{}

// Dispatcher runs posted tasks on the bubbletea event loop, in order.
// Tasks are buffered and a single wake-up message is sent per batch, so
// posting from inside Update never blocks on the program.
type Dispatcher struct {
	mu        sync.Mutex
	tasks     []func()
	scheduled bool
	send      func(tea.Msg)
}

// NewDispatcher creates a dispatcher. Attach must be called before the
// program starts for posted tasks to run.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Attach sets the function used to wake the event loop, usually
// (*tea.Program).Send.
func (d *Dispatcher) Attach(send func(tea.Msg)) {
	d.mu.Lock()
	d.send = send
	pending := len(d.tasks) > 0 && !d.scheduled
	if pending {
		d.scheduled = true
	}
	d.mu.Unlock()

	if pending {
		go send(drainMsg{})
	}
}

// Post implements mainloop.Dispatcher.
func (d *Dispatcher) Post(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.tasks = append(d.tasks, fn)
	wake := !d.scheduled && d.send != nil
	if wake {
		d.scheduled = true
	}
	send := d.send
	d.mu.Unlock()

	if wake {
		go send(drainMsg{})
	}
}

// drain runs the tasks posted so far. It is called from Update.
func (d *Dispatcher) drain() {
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.scheduled = false
	d.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
}
