package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Builder can help building kernels.
type Builder struct {
	seed         int64
	random       *RandomSource
	realtimeRate float64
	endTime      VTime
	log          *logrus.Entry
}

// MakeBuilder creates a builder with default parameters. The kernel runs as
// fast as possible, never ends on its own and is seeded with 0.
func MakeBuilder() Builder {
	return Builder{
		realtimeRate: math.Inf(1),
		endTime:      Forever,
	}
}

// WithSeed sets the master seed of the kernel random source.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithRandomSource sets the random source. It overrides WithSeed.
func (b Builder) WithRandomSource(r *RandomSource) Builder {
	b.random = r
	return b
}

// WithRealtimeRate sets the initial realtime rate.
func (b Builder) WithRealtimeRate(rate float64) Builder {
	b.realtimeRate = rate
	return b
}

// WithEndTime sets the time after which no event is released.
func (b Builder) WithEndTime(t VTime) Builder {
	b.endTime = t
	return b
}

// WithLogger sets the logger the kernel writes to.
func (b Builder) WithLogger(log *logrus.Entry) Builder {
	b.log = log
	return b
}

// Build creates the kernel.
func (b Builder) Build() *Kernel {
	log := b.log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	log = log.WithField("component", "kernel")

	if err := validateRate(b.realtimeRate); err != nil {
		log.Panic(err)
	}

	random := b.random
	if random == nil {
		random = NewRandomSource(b.seed)
	}

	k := &Kernel{
		HookableBase: NewHookableBase(),
		simQueue:     newEventQueue(),
		sysQueue:     newEventQueue(),
		tieRand:      random.ForSubsystem(SubsystemKernel),
		random:       random,
		pacer:        newPacer(b.realtimeRate),
		interleaver:  newInterleaver(),
		log:          log,
	}
	k.SetEndTime(b.endTime)

	return k
}
