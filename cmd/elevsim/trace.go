package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/elevsim/datarecording"
	"github.com/sarchlab/elevsim/sim"
	"github.com/sarchlab/elevsim/tracing"
)

func newTraceCmd() *cobra.Command {
	var bus, from, to string

	cmd := &cobra.Command{
		Use:   "trace <file>",
		Short: "Summarize a recorded message trace.",
		Long: "`trace run.sqlite3` reads the messages `run --trace run` " +
			"recorded and prints, per bus and channel, how many were " +
			"enqueued, started, delivered, dropped and aborted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := traceQuery(bus, from, to)
			if err != nil {
				return err
			}

			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			records, err := tracing.ReadTrace(cmd.Context(), reader, params)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), len(records),
				tracing.Summarize(records))

			return nil
		},
	}

	cmd.Flags().StringVar(&bus, "bus", "", "only the records of this bus")
	cmd.Flags().StringVar(&from, "from", "", "only the records from this time")
	cmd.Flags().StringVar(&to, "to", "", "only the records up to this time")

	return cmd
}

func traceQuery(bus, from, to string) (datarecording.QueryParams, error) {
	var (
		conds  []string
		params datarecording.QueryParams
	)

	if bus != "" {
		conds = append(conds, "Bus = ?")
		params.Args = append(params.Args, bus)
	}

	for _, bound := range []struct {
		value, cond string
	}{
		{from, "TimeNS >= ?"},
		{to, "TimeNS <= ?"},
	} {
		if bound.value == "" {
			continue
		}

		t, err := sim.ParseVTime(bound.value)
		if err != nil {
			return params, err
		}

		conds = append(conds, bound.cond)
		params.Args = append(params.Args, int64(t))
	}

	params.Where = strings.Join(conds, " AND ")

	return params, nil
}

func printSummary(w io.Writer, n int, summaries []tracing.ChannelSummary) {
	fmt.Fprintf(w, "%d records, %d channels\n", n, len(summaries))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUS\tID\tREP\tENQUEUED\tSTARTED\tDELIVERED\t"+
		"DROPPED\tABORTED\tBITS\tFIRST\tLAST")

	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%#x\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			s.Bus, s.Channel.Type, s.Channel.Replication,
			s.Enqueued, s.Started, s.Delivered, s.Dropped, s.Aborted,
			s.Bits, s.First, s.Last)
	}

	tw.Flush()
}
