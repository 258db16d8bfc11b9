package pipeline

import (
	"time"

	"github.com/voluzi/taskpilot/pkg/types"
)

// Report carries every structured output of one run. Fields for stages that
// did not run are left empty.
type Report struct {
	RunID      string                  `json:"runId"`
	StartedAt  time.Time               `json:"startedAt"`
	Partial    bool                    `json:"partial,omitempty"`
	Series     []types.MetricSample    `json:"series,omitempty"`
	Top        []types.ProcessEntry    `json:"top,omitempty"`
	Anomalies  *AnomalyTable           `json:"anomalies,omitempty"`
	Comparison *types.ComparisonRecord `json:"comparison,omitempty"`
}

// AnomalyTable pairs each detector input with its result.
type AnomalyTable struct {
	Source  string                `json:"source"`
	Values  []float64             `json:"values"`
	PIDs    []int32               `json:"pids,omitempty"`
	Results []types.AnomalyResult `json:"results"`
}

// Flagged returns the results marked anomalous.
func (t *AnomalyTable) Flagged() []types.AnomalyResult {
	var flagged []types.AnomalyResult
	for _, r := range t.Results {
		if r.IsAnomalous {
			flagged = append(flagged, r)
		}
	}
	return flagged
}
