package sink

import (
	"io"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"k8s.io/utils/ptr"

	"github.com/voluzi/taskpilot/pkg/pipeline"
)

const metricPrefix = "taskpilot_"

// Prometheus writes the report in the text exposition format, so a run can
// feed a node-exporter textfile collector.
type Prometheus struct {
	w io.Writer
}

func NewPrometheus(w io.Writer) *Prometheus {
	return &Prometheus{w: w}
}

func (s *Prometheus) Write(report *pipeline.Report) error {
	for _, mf := range families(report) {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(s.w, mf); err != nil {
			return err
		}
	}
	return nil
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: ptr.To(metricPrefix + name),
		Help: ptr.To(help),
		Type: ptr.To(dto.MetricType_GAUGE),
	}
}

func gauge(value float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: ptr.To(value)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  ptr.To(labels[i]),
			Value: ptr.To(labels[i+1]),
		})
	}
	return m
}

func families(report *pipeline.Report) []*dto.MetricFamily {
	hostCPU := gaugeFamily("host_cpu_percent", "System-wide CPU utilisation of the latest sample.")
	hostMem := gaugeFamily("host_memory_percent", "System-wide memory utilisation of the latest sample.")
	if n := len(report.Series); n > 0 {
		last := report.Series[n-1]
		hostCPU.Metric = append(hostCPU.Metric, gauge(last.CPUPercent))
		hostMem.Metric = append(hostMem.Metric, gauge(last.MemPercent))
	}

	processCPU := gaugeFamily("process_cpu_percent", "CPU utilisation of the top ranked processes.")
	for _, e := range report.Top {
		processCPU.Metric = append(processCPU.Metric, gauge(e.CPUPercent,
			"pid", strconv.FormatInt(int64(e.PID), 10),
			"name", e.Name,
		))
	}

	score := gaugeFamily("anomaly_score", "Isolation forest score per detector input, higher is more outlying.")
	flagged := gaugeFamily("anomalies_flagged", "Number of detector inputs flagged as anomalous.")
	if t := report.Anomalies; t != nil {
		for _, r := range t.Results {
			score.Metric = append(score.Metric, gauge(r.Score, "index", strconv.Itoa(r.Index)))
		}
		flagged.Metric = append(flagged.Metric, gauge(float64(len(t.Flagged())), "source", t.Source))
	}

	delta := gaugeFamily("effect_delta", "Change in utilisation after an external action.")
	if c := report.Comparison; c != nil {
		delta.Metric = append(delta.Metric,
			gauge(c.CPUDelta, "resource", "cpu"),
			gauge(c.MemDelta, "resource", "memory"),
		)
	}

	return []*dto.MetricFamily{hostCPU, hostMem, processCPU, score, flagged, delta}
}
