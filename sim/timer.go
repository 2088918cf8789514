package sim

// A Timer is a restartable one-shot alarm. Starting a running timer moves its
// alarm; the earlier alarm never fires.
//
// A timer created with NewSystemTimer schedules its alarm in the system queue.
type Timer struct {
	kernel  *Kernel
	handler Handler
	kind    QueueKind
	evt     *Event
}

// NewTimer creates a timer whose alarm fires in the simulation queue.
func NewTimer(k *Kernel, h Handler) *Timer {
	return &Timer{kernel: k, handler: h, kind: SimulationQueue}
}

// NewSystemTimer creates a timer whose alarm fires in the system queue.
func NewSystemTimer(k *Kernel, h Handler) *Timer {
	return &Timer{kernel: k, handler: h, kind: SystemQueue}
}

// Start arms the timer to fire after delay. The data is passed to the handler
// with the event.
func (t *Timer) Start(delay VTime, data any) error {
	t.Cancel()

	evt, err := t.kernel.schedule(t, delay, data, t.kind)
	if err != nil {
		return err
	}

	t.evt = evt

	return nil
}

// StartAt arms the timer to fire at an absolute time, which must not be in
// the past.
func (t *Timer) StartAt(at VTime, data any) error {
	return t.Start(at.Sub(t.kernel.Now()), data)
}

// Cancel disarms the timer.
func (t *Timer) Cancel() {
	if t.evt == nil {
		return
	}

	t.kernel.Cancel(t.evt)
	t.evt = nil
}

// IsRunning tells if the alarm is pending. A timer is not running while its
// handler executes, so the handler may restart it.
func (t *Timer) IsRunning() bool {
	return t.evt != nil && t.evt.IsScheduled()
}

// FireTime returns when the alarm fires, or Forever if it is not running.
func (t *Timer) FireTime() VTime {
	if !t.IsRunning() {
		return Forever
	}

	return t.evt.Time()
}

// Handle forwards the alarm to the timer handler.
func (t *Timer) Handle(e *Event) error {
	if t.evt == e {
		t.evt = nil
	}

	return t.handler.Handle(e)
}
