package sim

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// A Kernel is the future event list of a simulation. It owns the virtual
// clock and two event queues.
//
// Events in the system queue are released before events in the simulation
// queue that fire at the same time. Simulation events that fire at the same
// time are released in an order drawn from the kernel random stream, so that
// a run is reproducible given the same seed.
//
// The kernel is not safe for concurrent use, except for the methods that are
// documented to be called by observers: Now, InterleaveLock,
// InterleaveUnlock, SetRealtimeRate, RealtimeRate, Pause, Continue, Proceed,
// IsPaused, AddBreakpoint, RemoveBreakpoint and EndSimulation. Observers must
// hold the interleave lock while they read any other state.
type Kernel struct {
	*HookableBase

	timeLock sync.RWMutex
	now      VTime

	simQueue *eventQueue
	sysQueue *eventQueue
	nextSeq  uint64
	tieRand  *rand.Rand
	random   *RandomSource

	endTime atomic.Int64
	endNow  atomic.Bool

	bpLock      sync.Mutex
	breakpoints []VTime
	listeners   []BreakpointListener

	pacer       *pacer
	interleaver *interleaver
	runLock     sync.Mutex

	log *logrus.Entry
}

// Now returns the current virtual time.
func (k *Kernel) Now() VTime {
	k.timeLock.RLock()
	defer k.timeLock.RUnlock()

	return k.now
}

func (k *Kernel) writeNow(t VTime) {
	k.timeLock.Lock()
	defer k.timeLock.Unlock()

	if t < k.now {
		k.log.Panicf("cannot move time backward from %s to %s", k.now, t)
	}

	k.now = t
}

// Random returns the random source of the kernel. Components that need random
// numbers should draw from their own subsystem stream.
func (k *Kernel) Random() *RandomSource {
	return k.random
}

// Logger returns the logger of the kernel.
func (k *Kernel) Logger() *logrus.Entry {
	return k.log
}

// Schedule registers a handler to be invoked after delay, in the simulation
// queue.
func (k *Kernel) Schedule(h Handler, delay VTime, data any) (*Event, error) {
	return k.schedule(h, delay, data, SimulationQueue)
}

// ScheduleSystem registers a handler to be invoked after delay, in the system
// queue.
func (k *Kernel) ScheduleSystem(
	h Handler,
	delay VTime,
	data any,
) (*Event, error) {
	return k.schedule(h, delay, data, SystemQueue)
}

func (k *Kernel) schedule(
	h Handler,
	delay VTime,
	data any,
	kind QueueKind,
) (*Event, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrInvalidArgument)
	}

	if delay.IsNegative() {
		return nil, fmt.Errorf("%w: negative delay %d",
			ErrInvalidArgument, int64(delay))
	}

	k.nextSeq++

	evt := &Event{
		time:      k.Now().Add(delay),
		seq:       k.nextSeq,
		handler:   h,
		data:      data,
		kind:      kind,
		heapIndex: -1,
	}

	switch kind {
	case SystemQueue:
		k.sysQueue.Push(evt)
	default:
		evt.tie = k.tieRand.Uint64()
		k.simQueue.Push(evt)
	}

	return evt, nil
}

// Cancel removes a scheduled event from its queue. Cancelling an event that
// has been released or cancelled does nothing.
func (k *Kernel) Cancel(evt *Event) {
	if evt == nil || evt.state != eventLive {
		return
	}

	k.queueOf(evt).Remove(evt)
	evt.state = eventCancelled
}

func (k *Kernel) queueOf(evt *Event) *eventQueue {
	if evt.kind == SystemQueue {
		return k.sysQueue
	}

	return k.simQueue
}

// peekNext returns the event that should be released next. A system event
// wins a tie against a simulation event.
func (k *Kernel) peekNext() *Event {
	sim := k.simQueue.Peek()
	sys := k.sysQueue.Peek()

	switch {
	case sim == nil:
		return sys
	case sys == nil:
		return sim
	case sys.time <= sim.time:
		return sys
	default:
		return sim
	}
}

// PendingEvents returns the number of events waiting in the simulation queue
// and in the system queue.
func (k *Kernel) PendingEvents() (simulation, system int) {
	return k.simQueue.Len(), k.sysQueue.Len()
}

// IsBlocked tells if the simulation queue is empty. The system queue may
// still hold events, but nothing can animate the simulated system anymore.
func (k *Kernel) IsBlocked() bool {
	return k.simQueue.Len() == 0
}

// EndSimulation stops the kernel. No more events are released and a pending
// realtime wait returns immediately.
func (k *Kernel) EndSimulation() {
	k.endNow.Store(true)
	k.pacer.Stop()
}

// IsEnded tells if EndSimulation has been called.
func (k *Kernel) IsEnded() bool {
	return k.endNow.Load()
}

// SetEndTime bounds every run to events that fire at or before t.
func (k *Kernel) SetEndTime(t VTime) {
	if t.IsNegative() {
		t = Zero
	}

	k.endTime.Store(int64(t))
}

// EndTime returns the time bound set by SetEndTime. It is Forever by default.
func (k *Kernel) EndTime() VTime {
	return VTime(k.endTime.Load())
}

// SetRealtimeRate sets how many units of virtual time elapse per unit of
// wall-clock time. Zero pauses the run and +Inf runs as fast as possible.
func (k *Kernel) SetRealtimeRate(rate float64) error {
	if err := validateRate(rate); err != nil {
		return err
	}

	k.pacer.SetRate(rate, k.Now())

	return nil
}

// RealtimeRate returns the current realtime rate.
func (k *Kernel) RealtimeRate() float64 {
	return k.pacer.Rate()
}

// Pause sets the realtime rate to zero. Continue restores the rate that was
// active before.
func (k *Kernel) Pause() {
	k.pacer.SetRate(0, k.Now())
}

// Continue restores the realtime rate that was active before the kernel was
// paused, either by Pause or by a breakpoint.
func (k *Kernel) Continue() {
	k.pacer.Resume(k.Now())
}

// Proceed lets a paused kernel release one more event.
func (k *Kernel) Proceed() {
	k.pacer.Proceed()
}

// IsPaused tells if the run loop is blocked because the realtime rate is
// zero.
func (k *Kernel) IsPaused() bool {
	return k.pacer.IsPaused()
}

// InterleaveLock waits for the event being released to finish and then
// prevents the kernel from releasing new events until InterleaveUnlock is
// called. Several observers may hold the lock at the same time. Handlers and
// breakpoint listeners must not call it.
func (k *Kernel) InterleaveLock() {
	k.interleaver.acquire()
}

// InterleaveUnlock releases the lock acquired by InterleaveLock.
func (k *Kernel) InterleaveUnlock() {
	k.interleaver.release()
}

// RunUntil releases all the events that fire at or before limit, then moves
// the clock to limit.
//
// If limit is Forever, the run stops as soon as the simulation queue is empty,
// without moving the clock further. The effective limit never exceeds the end
// time. A handler error halts the run and is returned as a *HandlerError.
func (k *Kernel) RunUntil(limit VTime) error {
	if limit < k.Now() {
		return fmt.Errorf("%w: limit %s is before now %s",
			ErrInvalidArgument, limit, k.Now())
	}

	k.runLock.Lock()
	defer k.runLock.Unlock()

	k.pacer.Reanchor(k.Now())

	for {
		if k.endNow.Load() {
			return nil
		}

		effLimit := Min(limit, k.EndTime())
		natural := effLimit.IsForever()

		evt := k.peekNext()
		if evt == nil || evt.time > effLimit || evt.time.IsForever() ||
			(natural && k.IsBlocked()) {
			if k.breakpointBefore(effLimit, natural) {
				continue
			}

			break
		}

		if err := k.releaseNext(evt.time); err != nil {
			return err
		}
	}

	if k.endNow.Load() {
		return nil
	}

	effLimit := Min(limit, k.EndTime())
	if !effLimit.IsForever() && effLimit > k.Now() {
		k.writeNow(effLimit)
	}

	return nil
}

// breakpointBefore fires a breakpoint at or before the limit when no event is
// left to release in front of it. It reports whether a breakpoint fired or a
// wait was interrupted, in which case the caller should look again.
func (k *Kernel) breakpointBefore(limit VTime, natural bool) bool {
	if natural {
		return false
	}

	bp, ok := k.firstBreakpoint()
	if !ok || bp > limit {
		return false
	}

	if !k.pacer.Wait(k.Now(), bp) {
		return true
	}

	k.interleaver.begin()
	defer k.interleaver.end()

	if first, ok := k.firstBreakpoint(); ok && first == bp {
		k.fireBreakpoint(bp)
	}

	return true
}

// releaseNext paces up to target, then releases either the breakpoint or the
// event that comes first. It releases nothing if the wait was interrupted.
func (k *Kernel) releaseNext(target VTime) error {
	if bp, ok := k.firstBreakpoint(); ok && bp <= target {
		target = bp
	}

	if !k.pacer.Wait(k.Now(), target) {
		return nil
	}

	k.interleaver.begin()
	defer k.interleaver.end()

	if k.endNow.Load() {
		return nil
	}

	evt := k.peekNext()
	if evt == nil {
		return nil
	}

	if bp, ok := k.firstBreakpoint(); ok && bp <= evt.time {
		if bp <= target {
			k.fireBreakpoint(bp)
		}

		return nil
	}

	if evt.time > target {
		return nil
	}

	return k.release(evt)
}

// Step releases the next event, regardless of the realtime rate. Breakpoints
// at or before the time of the event fire first. Step returns false if no
// event could be released.
func (k *Kernel) Step() (bool, error) {
	k.runLock.Lock()
	defer k.runLock.Unlock()

	if k.endNow.Load() {
		return false, ErrSimulationEnded
	}

	k.interleaver.begin()
	defer k.interleaver.end()

	evt := k.peekNext()
	if evt == nil || evt.time.IsForever() || evt.time > k.EndTime() {
		return false, nil
	}

	for {
		bp, ok := k.firstBreakpoint()
		if !ok || bp > evt.time {
			break
		}

		k.fireBreakpoint(bp)
	}

	return true, k.release(evt)
}

func (k *Kernel) release(evt *Event) error {
	k.queueOf(evt).Remove(evt)
	k.writeNow(evt.time)
	evt.state = eventReleased

	ctx := HookCtx{
		Domain: k,
		Pos:    HookPosBeforeEvent,
		Now:    evt.time,
		Item:   evt,
	}
	k.InvokeHook(ctx)

	err := evt.handler.Handle(evt)

	ctx.Pos = HookPosAfterEvent
	ctx.Detail = err
	k.InvokeHook(ctx)

	if err != nil {
		k.log.WithError(err).Errorf("handler failed at %s", evt.time)
		return &HandlerError{Event: evt, Err: err}
	}

	return nil
}
