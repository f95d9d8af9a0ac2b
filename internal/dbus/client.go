package dbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/entrykit/internal/model"
)

// ErrDaemonNotRunning is returned when no process owns BusName.
var ErrDaemonNotRunning = errors.New("entrykitd is not running")

// Client calls a running entrykit daemon.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Dismissal is a received EntryDismissed signal.
type Dismissal struct {
	ID     string
	Name   string
	Reason string
}

// Connect opens a private session bus connection and checks that the
// daemon is reachable.
func Connect(ctx context.Context) (*Client, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var owned bool
	if err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&owned); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to query bus name owner: %w", err)
	}
	if !owned {
		conn.Close()
		return nil, ErrDaemonNotRunning
	}

	return &Client{conn: conn, obj: conn.Object(BusName, Path)}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Display submits an entry and returns its id.
func (c *Client) Display(ctx context.Context, name string, content model.Content, hints map[string]dbus.Variant) (string, error) {
	var id string
	err := c.obj.CallWithContext(ctx, Interface+".Display", 0,
		name, content.Summary, content.Body, content.Icon, hints).Store(&id)
	if err != nil {
		return "", fmt.Errorf("display: %w", err)
	}
	return id, nil
}

// Dismiss sends a dismissal descriptor.
func (c *Client) Dismiss(ctx context.Context, d model.Descriptor) error {
	priority := int32(0)
	if d.Kind == model.DismissPrioritized {
		priority = WirePriority(d.Threshold)
	}
	if err := c.obj.CallWithContext(ctx, Interface+".Dismiss", 0, d.Kind.String(), d.Name, priority).Err; err != nil {
		return fmt.Errorf("dismiss: %w", err)
	}
	return nil
}

// IsDisplaying reports whether an entry with name is active.
func (c *Client) IsDisplaying(ctx context.Context, name string) (bool, error) {
	var ok bool
	if err := c.obj.CallWithContext(ctx, Interface+".IsDisplaying", 0, name).Store(&ok); err != nil {
		return false, fmt.Errorf("is displaying: %w", err)
	}
	return ok, nil
}

// QueueContains reports whether an entry with name is queued.
func (c *Client) QueueContains(ctx context.Context, name string) (bool, error) {
	var ok bool
	if err := c.obj.CallWithContext(ctx, Interface+".QueueContains", 0, name).Store(&ok); err != nil {
		return false, fmt.Errorf("queue contains: %w", err)
	}
	return ok, nil
}

// Status fetches the active entry and backlog.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var (
		st          Status
		activatedAt int64
	)
	err := c.obj.CallWithContext(ctx, Interface+".Status", 0).
		Store(&st.Displaying, &st.ID, &st.Name, &st.Priority, &activatedAt, &st.Queued)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	if st.Displaying {
		st.ActivatedAt = time.UnixMilli(activatedAt)
	}
	if st.Queued == nil {
		st.Queued = []QueuedEntry{}
	}
	return &st, nil
}

// SubscribeDismissals delivers EntryDismissed signals until cancel is called.
// Subscribe before triggering the dismissal so the signal is not missed.
func (c *Client) SubscribeDismissals() (<-chan Dismissal, func(), error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(SignalEntryDismissed),
	}
	if err := c.conn.AddMatchSignal(opts...); err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", SignalEntryDismissed, err)
	}

	raw := make(chan *dbus.Signal, 16)
	c.conn.Signal(raw)
	out := make(chan Dismissal, 16)
	stop := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case sig, ok := <-raw:
				if !ok {
					return
				}
				d, ok := dismissalFrom(sig)
				if !ok {
					continue
				}
				select {
				case out <- d:
				case <-stop:
					return
				}
			case <-stop:
				return
			}
		}
	}()

	cancel := func() {
		c.conn.RemoveSignal(raw)
		_ = c.conn.RemoveMatchSignal(opts...)
		close(stop)
	}
	return out, cancel, nil
}

func dismissalFrom(sig *dbus.Signal) (Dismissal, bool) {
	if sig == nil || sig.Name != Interface+"."+SignalEntryDismissed || len(sig.Body) != 3 {
		return Dismissal{}, false
	}
	id, ok1 := sig.Body[0].(string)
	name, ok2 := sig.Body[1].(string)
	reason, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return Dismissal{}, false
	}
	return Dismissal{ID: id, Name: name, Reason: reason}, true
}
