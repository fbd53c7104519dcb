package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/algoscene/internal/config"
	"github.com/AaronLay10/algoscene/internal/timinglog"
)

func newTimingsCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var slowest int
	cmd := &cobra.Command{
		Use:   "timings",
		Short: "Print the beat timings of a stored run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == config.DriverMemory {
				return errors.New("storage driver memory keeps no timings between runs; use sqlite or postgres")
			}
			store, err := openStorage(cfg, ctx.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			if runID == "" {
				if runID, err = store.latestRun(cmd.Context()); err != nil {
					return err
				}
				if runID == "" {
					return errors.New("no stored runs; pass --run to pick one")
				}
			}
			records, err := store.reader().Records(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if slowest > 0 {
				records = timinglog.Slowest(records, slowest)
			}
			printTimings(cmd.OutOrStdout(), runID, records)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run identifier (default: latest run in the sqlite log)")
	cmd.Flags().IntVar(&slowest, "slowest", 0, "Only show the N beats with the largest overrun")
	return cmd
}

func printTimings(w io.Writer, runID string, records []timinglog.Record) {
	if len(records) == 0 {
		fmt.Fprintf(w, "run %s has no timing records\n", runID)
		return
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Key,
			r.BeatName,
			r.Action,
			seconds(r.Expected),
			seconds(r.Actual),
			signedSeconds(r.Variance),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Beat", "Name", "Action", "Expected", "Actual", "Variance"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))

	sum := timinglog.Summarize(records)
	fmt.Fprintf(w, "run %s: %d beats, expected %s, actual %s\n",
		runID, sum.Beats, seconds(sum.TotalExpected), seconds(sum.TotalActual))
	if sum.WorstKey != "" {
		fmt.Fprintf(w, "largest overrun: beat %s (%s)\n", sum.WorstKey, signedSeconds(sum.WorstOverrun))
	}
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "s"
}

func signedSeconds(v float64) string {
	if v > 0 {
		return "+" + seconds(v)
	}
	return seconds(v)
}
