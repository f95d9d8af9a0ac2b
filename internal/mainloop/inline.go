package mainloop

// Inline is a Dispatcher that runs tasks on the posting goroutine.
// A task posted while another is running is deferred until the running one
// returns, so reentrant posts keep their order. Inline is for callers that
// already serialise all access, such as tests and single-threaded hosts.
type Inline struct {
	pending  []func()
	draining bool
}

// NewInline returns an inline dispatcher.
func NewInline() *Inline {
	return &Inline{}
}

// Post runs fn now, or after the currently running task.
func (d *Inline) Post(fn func()) {
	if fn == nil {
		return
	}
	d.pending = append(d.pending, fn)
	if d.draining {
		return
	}

	d.draining = true
	defer func() { d.draining = false }()
	for len(d.pending) > 0 {
		next := d.pending[0]
		d.pending = d.pending[1:]
		next()
	}
}
