package sink

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/c2h5oh/datasize"

	"github.com/voluzi/taskpilot/pkg/pipeline"
	"github.com/voluzi/taskpilot/pkg/timeseries"
	"github.com/voluzi/taskpilot/pkg/types"
)

// Text writes aligned tables meant for a terminal.
type Text struct {
	w io.Writer
}

func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (s *Text) Write(report *pipeline.Report) error {
	var buf strings.Builder

	if report.RunID != "" {
		fmt.Fprintf(&buf, "[Run %s, started %s]\n", report.RunID, report.StartedAt.Format(time.RFC3339))
	}
	if report.Partial {
		fmt.Fprintln(&buf, "[!] Run was interrupted, results are partial")
	}

	if report.Series != nil {
		writeSeries(&buf, report.Series)
	}
	if report.Top != nil {
		writeTop(&buf, report.Top)
	}
	if report.Anomalies != nil {
		writeAnomalies(&buf, report.Anomalies)
	}
	if report.Comparison != nil {
		writeComparison(&buf, report.Comparison)
	}

	_, err := io.WriteString(s.w, buf.String())
	return err
}

func percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func signed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f", v)
}

func byteSize(v uint64) string {
	if v == 0 {
		return "-"
	}
	return datasize.ByteSize(v).HumanReadable()
}

func writeSeries(buf *strings.Builder, series []types.MetricSample) {
	fmt.Fprintf(buf, "\n[System usage, %d samples]\n", len(series))
	if len(series) == 0 {
		fmt.Fprintln(buf, "No samples collected")
		return
	}

	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICK\tTIME\tCPU(%)\tMEM(%)\tMEM USED")
	for _, s := range series {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.Tick, s.Time.Format(time.TimeOnly), percent(s.CPUPercent), percent(s.MemPercent), byteSize(s.MemUsedBytes))
	}
	tw.Flush()

	b := timeseries.FromSamples(series)
	fmt.Fprintf(buf, "avg cpu %s%%, avg mem %s%%", percent(b.AverageCPU()), percent(b.AverageMemory()))
	if peak, ok := b.Peak(); ok {
		fmt.Fprintf(buf, ", peak cpu %s%% at tick %d", percent(peak.CPUPercent), peak.Tick)
	}
	fmt.Fprintln(buf)
}

func writeTop(buf *strings.Builder, top []types.ProcessEntry) {
	fmt.Fprintf(buf, "\n[Top %d processes]\n", len(top))
	if len(top) == 0 {
		fmt.Fprintln(buf, "No processes in snapshot")
		return
	}

	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNAME\tCPU(%)\tMEM(%)")
	for _, e := range top {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.PID, e.Name, percent(e.CPUPercent), percent(e.MemPercent))
	}
	tw.Flush()
}

func writeAnomalies(buf *strings.Builder, table *pipeline.AnomalyTable) {
	flagged := table.Flagged()
	fmt.Fprintf(buf, "\n[Anomalies, %s, %d of %d flagged]\n", table.Source, len(flagged), len(table.Results))
	if len(flagged) == 0 {
		fmt.Fprintln(buf, "No anomalies detected")
		return
	}

	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tPID\tVALUE\tSCORE")
	for _, r := range flagged {
		pid := "-"
		if r.Index < len(table.PIDs) {
			pid = fmt.Sprintf("%d", table.PIDs[r.Index])
		}
		value := math.NaN()
		if r.Index < len(table.Values) {
			value = table.Values[r.Index]
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\n", r.Index, pid, percent(value), r.Score)
	}
	tw.Flush()
}

func writeComparison(buf *strings.Builder, c *types.ComparisonRecord) {
	fmt.Fprintln(buf, "\n[Before / after action]")
	if c.Action != nil {
		fmt.Fprintf(buf, "action %q pid %d\n", c.Action.Action, c.Action.PID)
	}

	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RESOURCE\tBEFORE\tAFTER\tDELTA")
	fmt.Fprintf(tw, "cpu(%%)\t%s\t%s\t%s\n", percent(c.Before.CPUPercent), percent(c.After.CPUPercent), signed(c.CPUDelta))
	fmt.Fprintf(tw, "mem(%%)\t%s\t%s\t%s\n", percent(c.Before.MemPercent), percent(c.After.MemPercent), signed(c.MemDelta))
	tw.Flush()
}
