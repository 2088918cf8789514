package sim

import "sort"

// A BreakpointListener is notified when the kernel stops at a breakpoint. The
// kernel has already set its realtime rate to zero when BreakpointHit is
// called; the listener may set another rate to keep the run going.
type BreakpointListener interface {
	BreakpointHit(t VTime)
}

// BreakpointListenerFunc adapts a function to the BreakpointListener
// interface.
type BreakpointListenerFunc func(t VTime)

// BreakpointHit calls f(t).
func (f BreakpointListenerFunc) BreakpointHit(t VTime) {
	f(t)
}

// AddBreakpoint makes the kernel pause at t, before any event that fires at t
// is released. It returns false if t is not in the future or if the
// breakpoint already exists.
func (k *Kernel) AddBreakpoint(t VTime) bool {
	k.bpLock.Lock()
	defer k.bpLock.Unlock()

	if t <= k.Now() || t.IsForever() {
		return false
	}

	i := sort.Search(len(k.breakpoints), func(i int) bool {
		return k.breakpoints[i] >= t
	})
	if i < len(k.breakpoints) && k.breakpoints[i] == t {
		return false
	}

	k.breakpoints = append(k.breakpoints, 0)
	copy(k.breakpoints[i+1:], k.breakpoints[i:])
	k.breakpoints[i] = t

	return true
}

// RemoveBreakpoint removes the breakpoint at t. It returns false if there is
// no such breakpoint.
func (k *Kernel) RemoveBreakpoint(t VTime) bool {
	k.bpLock.Lock()
	defer k.bpLock.Unlock()

	return k.removeBreakpointLocked(t)
}

func (k *Kernel) removeBreakpointLocked(t VTime) bool {
	i := sort.Search(len(k.breakpoints), func(i int) bool {
		return k.breakpoints[i] >= t
	})
	if i == len(k.breakpoints) || k.breakpoints[i] != t {
		return false
	}

	k.breakpoints = append(k.breakpoints[:i], k.breakpoints[i+1:]...)

	return true
}

// Breakpoints returns the pending breakpoints in time order.
func (k *Kernel) Breakpoints() []VTime {
	k.bpLock.Lock()
	defer k.bpLock.Unlock()

	return append([]VTime(nil), k.breakpoints...)
}

func (k *Kernel) firstBreakpoint() (VTime, bool) {
	k.bpLock.Lock()
	defer k.bpLock.Unlock()

	if len(k.breakpoints) == 0 {
		return 0, false
	}

	return k.breakpoints[0], true
}

// AddBreakpointListener registers a listener. A listener registered twice is
// notified twice.
func (k *Kernel) AddBreakpointListener(l BreakpointListener) {
	k.bpLock.Lock()
	defer k.bpLock.Unlock()

	k.listeners = append(k.listeners, l)
}

// RemoveBreakpointListener removes the first registration of a listener. It
// returns false if the listener was not registered.
func (k *Kernel) RemoveBreakpointListener(l BreakpointListener) bool {
	k.bpLock.Lock()
	defer k.bpLock.Unlock()

	for i, registered := range k.listeners {
		if registered == l {
			k.listeners = append(k.listeners[:i], k.listeners[i+1:]...)
			return true
		}
	}

	return false
}

// fireBreakpoint moves the clock to the breakpoint, pauses the kernel and
// notifies the listeners. It must run inside a step window.
func (k *Kernel) fireBreakpoint(t VTime) {
	k.bpLock.Lock()
	k.removeBreakpointLocked(t)
	listeners := append([]BreakpointListener(nil), k.listeners...)
	k.bpLock.Unlock()

	if t > k.Now() {
		k.writeNow(t)
	}

	k.pacer.SetRate(0, t)
	k.log.Infof("breakpoint hit at %s", t)

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosBreakpoint,
		Now:    t,
		Item:   t,
	})

	for _, l := range listeners {
		l.BreakpointHit(t)
	}
}
