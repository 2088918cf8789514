package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/elevsim/sim"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// ProgressBarSnapshot is a copy of a progress bar taken under its lock.
type ProgressBarSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// Snapshot returns a copy of the bar.
func (b *ProgressBar) Snapshot() ProgressBarSnapshot {
	b.Lock()
	defer b.Unlock()

	return ProgressBarSnapshot{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// SetFinished sets the number of finished elements.
func (b *ProgressBar) SetFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// A TimeProgress moves a progress bar along with the virtual time. The bar
// counts milliseconds.
type TimeProgress struct {
	bar   *ProgressBar
	timer *sim.Timer
	every sim.VTime
	now   func() sim.VTime
}

// TrackTime updates the bar with the virtual time every interval, on the
// system queue, until the bar is complete.
func TrackTime(
	k *sim.Kernel,
	bar *ProgressBar,
	every sim.VTime,
) (*TimeProgress, error) {
	if every <= 0 {
		return nil, sim.ErrInvalidArgument
	}

	tp := &TimeProgress{bar: bar, every: every, now: k.Now}
	tp.timer = sim.NewSystemTimer(k, tp)

	if err := tp.timer.Start(every, nil); err != nil {
		return nil, err
	}

	return tp, nil
}

// Handle updates the bar.
func (tp *TimeProgress) Handle(_ *sim.Event) error {
	ms := uint64(tp.now().Milliseconds())
	tp.bar.SetFinished(ms)

	if ms >= tp.bar.Snapshot().Total {
		return nil
	}

	return tp.timer.Start(tp.every, nil)
}

// Stop stops updating the bar.
func (tp *TimeProgress) Stop() {
	tp.timer.Cancel()
}
