package network

import (
	"fmt"

	"github.com/sarchlab/elevsim/sim"
)

// DefaultUtilizationPeriod is the window over which the recent utilization
// is measured.
const DefaultUtilizationPeriod = sim.Second

// UtilizationReport is a snapshot of the bus utilization. All values are
// fractions in [0, 1], or -1 when the accounting is disabled.
type UtilizationReport struct {
	Recent  float64
	Max     float64
	Overall float64
}

func (r UtilizationReport) String() string {
	if r.Overall < 0 {
		return "Utilization disabled"
	}

	return fmt.Sprintf("Recent: %.2f %% Max: %.2f %%  Overall:  %.2f %%",
		r.Recent*100, r.Max*100, r.Overall*100)
}

// Utilization tracks how long a bus is busy. The recent utilization is
// recomputed at the end of each period by a system timer.
type Utilization struct {
	kernel  *sim.Kernel
	enabled bool
	period  sim.VTime
	timer   *sim.Timer

	busy      bool
	lastStart sim.VTime
	total     sim.VTime
	recent    sim.VTime

	report UtilizationReport
}

func newUtilization(k *sim.Kernel, period sim.VTime, enabled bool) *Utilization {
	u := &Utilization{
		kernel:  k,
		enabled: enabled,
		period:  period,
	}

	if !enabled {
		u.report = UtilizationReport{Recent: -1, Max: -1, Overall: -1}
		return u
	}

	u.timer = sim.NewSystemTimer(k, u)
	if err := u.timer.Start(period, nil); err != nil {
		k.Logger().Panic(err)
	}

	return u
}

// IsEnabled tells if the bus accounts for its busy time. A bus with a zero
// bit time never is.
func (u *Utilization) IsEnabled() bool {
	return u.enabled
}

// Period returns the window of the recent utilization.
func (u *Utilization) Period() sim.VTime {
	return u.period
}

// Report returns the values computed at the end of the last period.
func (u *Utilization) Report() UtilizationReport {
	return u.report
}

// BusyTime returns the accumulated busy time, including the transmission in
// progress.
func (u *Utilization) BusyTime() sim.VTime {
	if u.busy {
		return u.total + u.kernel.Now() - u.lastStart
	}

	return u.total
}

func (u *Utilization) start() {
	if !u.enabled {
		return
	}

	u.busy = true
	u.lastStart = u.kernel.Now()
}

func (u *Utilization) end() {
	if !u.enabled {
		return
	}

	if !u.busy {
		u.kernel.Logger().Panic("network: utilization ended without start")
	}

	used := u.kernel.Now() - u.lastStart
	u.total += used
	u.recent += used
	u.busy = false
}

// Handle closes the current period.
func (u *Utilization) Handle(_ *sim.Event) error {
	now := u.kernel.Now()

	if u.busy {
		used := now - u.lastStart
		u.total += used
		u.recent += used
		u.lastStart = now
	}

	if now > 0 {
		u.report.Overall = float64(u.total) / float64(now)
	}

	u.report.Recent = float64(u.recent) / float64(u.period)
	if u.report.Recent > u.report.Max {
		u.report.Max = u.report.Recent
	}

	u.recent = 0

	return u.timer.Start(u.period, nil)
}
