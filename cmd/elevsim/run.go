package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/elevsim/sim"
)

type runFlags struct {
	config      string
	seed        int64
	until       string
	bitRate     int
	rate        string
	monitor     bool
	port        int
	openBrowser bool
	trace       string
	ber         int64
	drop        float64
	logLevel    string
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run periodic CAN traffic until the end time.",
		Long: "`run` builds the CAN bus described by the run file and the " +
			"flags, runs it and prints the bus and fault model statistics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(f.config)
			if err != nil {
				return err
			}

			if err := f.apply(cmd, &cfg); err != nil {
				return err
			}

			log, err := setupLogging(cfg.LogLevel)
			if err != nil {
				return err
			}

			s, err := newScenario(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			runErr := s.run(ctx)

			s.report(cmd.OutOrStdout())

			if err := s.close(); err != nil {
				log.WithError(err).Error("cannot close the trace")
			}

			return runErr
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.config, "config", "c", "", "YAML run file")
	flags.Int64Var(&f.seed, "seed", 0, "master random seed")
	flags.StringVar(&f.until, "until", "10s", "virtual time to run for")
	flags.IntVar(&f.bitRate, "bit-rate", 125000, "bus bit rate in bit/s")
	flags.StringVar(&f.rate, "rate", "inf",
		"realtime rate, virtual seconds per wall-clock second")
	flags.BoolVar(&f.monitor, "monitor", false, "serve the monitoring API")
	flags.IntVar(&f.port, "port", 0, "monitor port, random if 0")
	flags.BoolVar(&f.openBrowser, "open-browser", false,
		"open the monitor in a browser")
	flags.StringVar(&f.trace, "trace", "",
		"record the bus messages into this SQLite database")
	flags.Int64Var(&f.ber, "ber", 0, "inverse bit error rate, 0 disables")
	flags.Float64Var(&f.drop, "drop", 0, "percentage of messages to drop")
	flags.StringVar(&f.logLevel, "log-level", "info", "log level")

	return cmd
}

// apply overrides the configuration with the flags given on the command
// line.
func (f *runFlags) apply(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()

	if flags.Changed("seed") {
		cfg.Seed = f.seed
	}

	if flags.Changed("until") {
		t, err := sim.ParseVTime(f.until)
		if err != nil {
			return err
		}

		cfg.Until = Duration(t)
	}

	if flags.Changed("bit-rate") {
		cfg.BitRate = f.bitRate
	}

	if flags.Changed("rate") {
		rate, err := parseRate(f.rate)
		if err != nil {
			return err
		}

		cfg.RealtimeRate = Rate(rate)
	}

	if flags.Changed("monitor") {
		cfg.Monitor.Enabled = f.monitor
	}

	if flags.Changed("port") {
		cfg.Monitor.Port = f.port
	}

	if flags.Changed("open-browser") {
		cfg.Monitor.OpenBrowser = f.openBrowser
	}

	if flags.Changed("trace") {
		cfg.Trace = f.trace
	}

	if flags.Changed("ber") {
		cfg.Faults.InverseBER = f.ber
	}

	if flags.Changed("drop") {
		cfg.Faults.DropPercentage = f.drop
	}

	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	return nil
}
