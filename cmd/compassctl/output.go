package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"compass.dev/tracker/internal/core"
)

func printTrends(out io.Writer, trends []core.MetricTrends, days int) error {
	if len(trends) == 0 {
		_, err := fmt.Fprintln(out, "No metrics enabled.")
		return err
	}
	fmt.Fprintf(out, "Last %d days\n\n", days)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tENTRIES\tSUMMARY")
	for _, t := range trends {
		fmt.Fprintf(w, "%s\t%d\t%s\n", t.Metric.DisplayName, t.Aggregate.Count(), t.Aggregate.Summary)
	}
	return w.Flush()
}
