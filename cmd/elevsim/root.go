package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "elevsim",
		Short: "elevsim simulates the CAN bus of an elevator testbed.",
		Long: `elevsim simulates the CAN bus of an elevator testbed on a ` +
			`discrete-event kernel. It can run periodic traffic under fault ` +
			`models and encode single CAN frames.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd(), newFrameCmd(), newTraceCmd())

	return rootCmd
}

func setupLogging(level string) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.StandardLogger()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logrus.NewEntry(logger), nil
}
