package sim

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// pacer throttles event release against the wall clock. One unit of virtual
// time takes 1/rate units of wall-clock time. A rate of zero pauses the
// simulation and +Inf disables pacing.
//
// All methods are safe to call from an observer goroutine. Every change wakes
// up a pending wait so that the new rate takes effect immediately.
type pacer struct {
	lock sync.Mutex

	rate       float64
	resumeRate float64
	anchorWall time.Time
	anchorVirt VTime

	proceedTokens int
	paused        bool
	stopped       bool

	changed chan struct{}
	clock   func() time.Time
}

func newPacer(rate float64) *pacer {
	return &pacer{
		rate:       rate,
		resumeRate: math.Inf(1),
		anchorWall: time.Now(),
		changed:    make(chan struct{}),
		clock:      time.Now,
	}
}

func validateRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 {
		return fmt.Errorf("%w: realtime rate %v", ErrInvalidArgument, rate)
	}

	return nil
}

// Rate returns the current rate.
func (p *pacer) Rate() float64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.rate
}

// SetRate changes the rate. now is the virtual time at which the change takes
// effect and becomes the new pacing anchor.
func (p *pacer) SetRate(rate float64, now VTime) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.setRateLocked(rate, now)
}

func (p *pacer) setRateLocked(rate float64, now VTime) {
	if rate == 0 && p.rate != 0 {
		p.resumeRate = p.rate
	}

	p.rate = rate
	p.reanchorLocked(now)
	p.notifyLocked()
}

// Resume restores the rate that was active before the last pause. It does
// nothing if the pacer is not paused.
func (p *pacer) Resume(now VTime) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.rate != 0 {
		return
	}

	p.setRateLocked(p.resumeRate, now)
}

// Reanchor aligns the virtual time now with the current wall-clock time.
func (p *pacer) Reanchor(now VTime) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.reanchorLocked(now)
}

func (p *pacer) reanchorLocked(now VTime) {
	p.anchorWall = p.clock()
	p.anchorVirt = now
}

// Proceed lets one wait return while the rate is zero.
func (p *pacer) Proceed() {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.rate != 0 {
		return
	}

	p.proceedTokens++
	p.notifyLocked()
}

// Stop releases all current and future waits.
func (p *pacer) Stop() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.stopped = true
	p.notifyLocked()
}

// IsPaused tells if a wait is blocked because the rate is zero.
func (p *pacer) IsPaused() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.paused
}

func (p *pacer) notifyLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// Wait blocks until the wall clock reaches the virtual time target. It returns
// true if the target was reached and false if the wait was interrupted by a
// state change, in which case the caller should re-evaluate what to release.
func (p *pacer) Wait(now, target VTime) bool {
	p.lock.Lock()

	if p.stopped || math.IsInf(p.rate, 1) {
		p.lock.Unlock()
		return true
	}

	if p.rate == 0 {
		if p.proceedTokens > 0 {
			p.proceedTokens--
			p.reanchorLocked(target)
			p.lock.Unlock()

			return true
		}

		p.paused = true
		changed := p.changed
		p.lock.Unlock()

		<-changed

		p.lock.Lock()
		p.paused = false
		p.lock.Unlock()

		return false
	}

	if target <= now {
		p.lock.Unlock()
		return true
	}

	offset := float64(target-p.anchorVirt) / p.rate
	deadline := p.anchorWall.Add(time.Duration(offset))
	sleep := deadline.Sub(p.clock())
	changed := p.changed
	p.lock.Unlock()

	if sleep <= 0 {
		return true
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-changed:
		return false
	}
}
