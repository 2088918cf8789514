package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/elevsim/can"
	"github.com/sarchlab/elevsim/datarecording"
	"github.com/sarchlab/elevsim/monitoring"
	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/network/faultmodel"
	"github.com/sarchlab/elevsim/sim"
	"github.com/sarchlab/elevsim/tracing"
)

// A scenario is a CAN bus with periodic traffic and fault models, ready to
// run.
type scenario struct {
	cfg    Config
	log    *logrus.Entry
	kernel *sim.Kernel
	bus    *can.Network

	senders   []*can.Mailbox
	receivers map[uint32]*can.Mailbox

	// faults keeps the fault models that unregister themselves when their
	// interval ends, so that they are still reported.
	faults []network.FaultModel

	latency  *tracing.LatencyTracer
	recorder datarecording.DataRecorder
	tracer   *tracing.DBTracer
	monitor  *monitoring.Monitor
}

func newScenario(cfg Config, log *logrus.Entry) (*scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	k := sim.MakeBuilder().
		WithSeed(cfg.Seed).
		WithRealtimeRate(float64(cfg.RealtimeRate)).
		WithEndTime(cfg.Until.VTime()).
		WithLogger(log).
		Build()

	s := &scenario{
		cfg:       cfg,
		log:       log,
		kernel:    k,
		bus:       can.NewNetwork(k, sim.Second/sim.VTime(cfg.BitRate), log),
		receivers: make(map[uint32]*can.Mailbox),
		latency:   tracing.NewLatencyTracer(nil),
	}

	tracing.CollectTrace(s.bus, s.latency)

	// The tracer goes first, the periodic senders enqueue while installed.
	if err := s.installTracer(); err != nil {
		return nil, err
	}

	if err := s.install(); err != nil {
		return nil, errors.Join(err, s.close())
	}

	return s, nil
}

func (s *scenario) install() error {
	if err := s.installTraffic(); err != nil {
		return err
	}

	if err := s.installFaults(); err != nil {
		return err
	}

	if !s.cfg.Monitor.Enabled {
		return nil
	}

	s.monitor = monitoring.NewMonitor(s.log).
		WithPortNumber(s.cfg.Monitor.Port)
	s.monitor.RegisterKernel(s.kernel)

	return s.monitor.RegisterBus(s.bus.Scheduler)
}

func (s *scenario) installTraffic() error {
	observer := s.bus.FrameworkConnection("observer", nil)

	for _, t := range s.cfg.Traffic {
		tx, err := can.NewMailbox(t.ID)
		if err != nil {
			return err
		}

		if err := tx.SetData(t.Value, t.Size); err != nil {
			return fmt.Errorf("traffic %s: %w", t.Name, err)
		}

		conn := s.bus.Connect(t.Name)
		if err := conn.SendPeriodic(tx, t.Period.VTime()); err != nil {
			return fmt.Errorf("traffic %s: %w", t.Name, err)
		}

		if _, found := s.receivers[t.ID]; !found {
			rx := can.MustNewMailbox(t.ID)
			if err := observer.RegisterTimeTriggered(rx); err != nil {
				return err
			}

			s.receivers[t.ID] = rx
		}

		s.senders = append(s.senders, tx)
	}

	return nil
}

func (s *scenario) installFaults() error {
	f := s.cfg.Faults

	if f.InverseBER > 0 {
		be, err := faultmodel.NewBitError(s.kernel, f.InverseBER)
		if err != nil {
			return err
		}

		if err := s.register(be); err != nil {
			return err
		}
	}

	if f.DropPercentage > 0 {
		dm, err := faultmodel.NewDropMessages(s.kernel, f.DropPercentage)
		if err != nil {
			return err
		}

		if err := s.register(dm); err != nil {
			return err
		}
	}

	if len(f.Blackouts) > 0 {
		if err := s.installBlackouts(f.Blackouts); err != nil {
			return err
		}
	}

	for _, b := range f.Blocks {
		bm, err := faultmodel.NewBlockMessage(s.kernel, int(b.ID),
			b.Start.VTime(), b.Duration.VTime(), b.AtDelivery)
		if err != nil {
			return err
		}

		if err := s.register(bm); err != nil {
			return err
		}
	}

	return nil
}

func (s *scenario) register(fm network.FaultModel) error {
	if err := s.bus.RegisterFaultModel(fm); err != nil {
		return err
	}

	s.faults = append(s.faults, fm)

	return nil
}

func (s *scenario) installBlackouts(windows []Window) error {
	bo := faultmodel.NewBlackout(s.kernel)
	if err := s.register(bo); err != nil {
		return err
	}

	for _, w := range windows {
		duration := w.Duration.VTime()

		_, err := s.kernel.Schedule(sim.HandlerFunc(func(*sim.Event) error {
			return bo.Start(duration)
		}), w.Start.VTime(), nil)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *scenario) installTracer() error {
	if s.cfg.Trace == "" {
		return nil
	}

	recorder, err := datarecording.New(s.cfg.Trace,
		datarecording.WithLogger(s.log))
	if err != nil {
		return err
	}

	tracer, err := tracing.NewDBTracer(recorder, s.log)
	if err != nil {
		return errors.Join(err, recorder.Close())
	}

	tracing.CollectTrace(s.bus, tracer)
	s.recorder = recorder
	s.tracer = tracer

	return nil
}

// run runs the kernel until the end time. If the monitor is enabled, it is
// served while the kernel runs. Cancelling the context ends the simulation.
func (s *scenario) run(ctx context.Context) error {
	if s.monitor == nil {
		return s.runKernel(ctx)
	}

	addr, err := s.monitor.Listen()
	if err != nil {
		return err
	}

	if s.cfg.Monitor.OpenBrowser {
		if err := browser.OpenURL(addr); err != nil {
			s.log.WithError(err).Warn("cannot open the browser")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)

	g.Go(func() error {
		return s.monitor.Serve(serveCtx)
	})

	g.Go(func() error {
		defer stopServing()

		return s.runKernel(gctx)
	})

	return g.Wait()
}

func (s *scenario) runKernel(ctx context.Context) error {
	if ctx.Err() != nil {
		s.kernel.EndSimulation()
		return nil
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.log.Warn("interrupted, ending the simulation")
			s.kernel.EndSimulation()
		case <-done:
		}
	}()

	s.log.WithFields(logrus.Fields{
		"seed":  s.kernel.Random().Seed(),
		"until": s.cfg.Until.VTime().String(),
	}).Info("simulation started")

	if err := s.kernel.RunUntil(s.cfg.Until.VTime()); err != nil {
		var missed *network.DeadlineMissedError
		if errors.As(err, &missed) {
			return fmt.Errorf("%s missed its deadline at %s: %w",
				missed.Payload, missed.Deadline, err)
		}

		return err
	}

	s.log.WithField("now", s.kernel.Now().String()).Info("simulation ended")

	return nil
}

// close flushes and closes the trace.
func (s *scenario) close() error {
	if s.recorder == nil {
		return nil
	}

	return s.recorder.Close()
}

func (s *scenario) report(w io.Writer) {
	stats := s.bus.Stats()

	fmt.Fprintf(w, "Simulated %s on %s (seed %d)\n",
		s.kernel.Now(), s.bus.Name(), s.kernel.Random().Seed())
	fmt.Fprintf(w, "Messages: enqueued=%d delivered=%d dropped_at_start=%d "+
		"dropped_at_delivery=%d aborted=%d deadlines_missed=%d\n",
		stats.Enqueued, stats.Delivered, stats.DroppedAtStart,
		stats.DroppedAtDelivery, stats.Aborted, stats.DeadlinesMissed)
	fmt.Fprintf(w, "Utilization: %s\n", s.bus.Utilization().Report())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDELIVERED\tDROPPED\tAVG LATENCY\tMAX LATENCY\tLAST")

	for _, ch := range s.latency.Channels(s.bus.Name()) {
		l := s.latency.Stats(s.bus.Name(), ch)

		last := "-"
		if rx, ok := s.receivers[uint32(ch.Type)]; ok && rx.HasTimestamp() {
			last = rx.String()
		}

		fmt.Fprintf(tw, "%#x\t%d\t%d\t%s\t%s\t%s\n", ch.Type,
			l.Delivered, l.Dropped, l.Average(), l.Max, last)
	}

	tw.Flush()

	for _, fm := range s.faults {
		if r, ok := fm.(network.Summarizer); ok {
			fmt.Fprintf(w, "%s: %s\n", fm.Name(), r.Report())
		}
	}

	if s.tracer != nil {
		fmt.Fprintf(w, "Trace: %d records in table %s\n",
			s.tracer.Count(), s.tracer.Table())
	}
}
