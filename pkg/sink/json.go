package sink

import (
	"io"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/voluzi/taskpilot/pkg/pipeline"
	"github.com/voluzi/taskpilot/pkg/types"
)

// JSON writes the report as an indented JSON document. Unavailable readings
// are encoded as null.
type JSON struct {
	w io.Writer
}

func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

func (s *JSON) Write(report *pipeline.Report) error {
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	return enc.Encode(reportView(report))
}

// number marshals NaN and infinities as null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

type jsonSample struct {
	Tick          int       `json:"tick"`
	Time          time.Time `json:"time"`
	CPUPercent    number    `json:"cpuPercent"`
	MemPercent    number    `json:"memPercent"`
	MemUsedBytes  uint64    `json:"memUsedBytes,omitempty"`
	MemTotalBytes uint64    `json:"memTotalBytes,omitempty"`
}

type jsonProcess struct {
	PID        int32  `json:"pid"`
	Name       string `json:"name"`
	CPUPercent number `json:"cpuPercent"`
	MemPercent number `json:"memPercent"`
}

type jsonResult struct {
	Index       int    `json:"index"`
	Value       number `json:"value"`
	PID         int32  `json:"pid,omitempty"`
	Score       number `json:"score"`
	IsAnomalous bool   `json:"isAnomalous"`
}

type jsonAnomalies struct {
	Source  string       `json:"source"`
	Flagged int          `json:"flagged"`
	Results []jsonResult `json:"results"`
}

type jsonComparison struct {
	Before   jsonSample         `json:"before"`
	After    jsonSample         `json:"after"`
	CPUDelta number             `json:"cpuDelta"`
	MemDelta number             `json:"memDelta"`
	Action   *types.ActionEvent `json:"action,omitempty"`
}

type jsonReport struct {
	RunID      string          `json:"runId,omitempty"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	Partial    bool            `json:"partial,omitempty"`
	Series     []jsonSample    `json:"series,omitempty"`
	Top        []jsonProcess   `json:"top,omitempty"`
	Anomalies  *jsonAnomalies  `json:"anomalies,omitempty"`
	Comparison *jsonComparison `json:"comparison,omitempty"`
}

func sampleView(s types.MetricSample) jsonSample {
	return jsonSample{
		Tick:          s.Tick,
		Time:          s.Time,
		CPUPercent:    number(s.CPUPercent),
		MemPercent:    number(s.MemPercent),
		MemUsedBytes:  s.MemUsedBytes,
		MemTotalBytes: s.MemTotalBytes,
	}
}

func reportView(r *pipeline.Report) jsonReport {
	view := jsonReport{
		RunID:   r.RunID,
		Partial: r.Partial,
	}
	if !r.StartedAt.IsZero() {
		view.StartedAt = &r.StartedAt
	}

	if r.Series != nil {
		view.Series = make([]jsonSample, len(r.Series))
		for i, s := range r.Series {
			view.Series[i] = sampleView(s)
		}
	}

	if r.Top != nil {
		view.Top = make([]jsonProcess, len(r.Top))
		for i, e := range r.Top {
			view.Top[i] = jsonProcess{
				PID:        e.PID,
				Name:       e.Name,
				CPUPercent: number(e.CPUPercent),
				MemPercent: number(e.MemPercent),
			}
		}
	}

	if t := r.Anomalies; t != nil {
		anomalies := &jsonAnomalies{
			Source:  t.Source,
			Flagged: len(t.Flagged()),
			Results: make([]jsonResult, len(t.Results)),
		}
		for i, res := range t.Results {
			row := jsonResult{
				Index:       res.Index,
				Value:       number(math.NaN()),
				Score:       number(res.Score),
				IsAnomalous: res.IsAnomalous,
			}
			if res.Index < len(t.Values) {
				row.Value = number(t.Values[res.Index])
			}
			if res.Index < len(t.PIDs) {
				row.PID = t.PIDs[res.Index]
			}
			anomalies.Results[i] = row
		}
		view.Anomalies = anomalies
	}

	if c := r.Comparison; c != nil {
		view.Comparison = &jsonComparison{
			Before:   sampleView(c.Before),
			After:    sampleView(c.After),
			CPUDelta: number(c.CPUDelta),
			MemDelta: number(c.MemDelta),
			Action:   c.Action,
		}
	}
	return view
}
