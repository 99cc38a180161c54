package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"garnet/internal/progress"
)

// writeStageTimings prints the stages that ran, in pipeline order, then the total.
func writeStageTimings(out io.Writer, timings progress.Timings) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	ran := 0
	for _, stage := range progress.Stages {
		if !timings.Has(stage) {
			continue
		}
		ran++
		fmt.Fprintf(tw, "%s\t%.1f ms\t\n", stage, millis(timings.Duration(stage)))
	}
	if ran == 0 {
		return nil
	}
	fmt.Fprintf(tw, "total\t%.1f ms\t\n", millis(timings.Sum(progress.Stages...)))
	return tw.Flush()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
