package types

import (
	"math"
	"time"
)

// DefaultTopK controls how many processes the ranked table holds by default.
const DefaultTopK = 5

// MetricSample is one system-wide reading. NaN in CPUPercent or MemPercent
// marks a reading that could not be taken.
type MetricSample struct {
	Tick          int       `json:"tick"`
	Time          time.Time `json:"time"`
	CPUPercent    float64   `json:"cpuPercent"`
	MemPercent    float64   `json:"memPercent"`
	MemUsedBytes  uint64    `json:"memUsedBytes,omitempty"`
	MemTotalBytes uint64    `json:"memTotalBytes,omitempty"`
}

// InvalidSample returns a sample with both metrics marked unavailable.
func InvalidSample() MetricSample {
	return MetricSample{
		Time:       time.Now(),
		CPUPercent: math.NaN(),
		MemPercent: math.NaN(),
	}
}

// Valid reports whether both metrics hold real readings.
func (s MetricSample) Valid() bool {
	return isFinite(s.CPUPercent) && isFinite(s.MemPercent)
}

// ProcessEntry is the reading for one live process within a snapshot.
type ProcessEntry struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpuPercent"`
	MemPercent float64 `json:"memPercent"`
}

// CPUValid reports whether CPUPercent was readable.
func (e ProcessEntry) CPUValid() bool {
	return isFinite(e.CPUPercent)
}

// MemValid reports whether MemPercent was readable.
func (e ProcessEntry) MemValid() bool {
	return isFinite(e.MemPercent)
}

// AnomalyResult classifies the value at Index of a detection batch.
// Higher scores are more outlying.
type AnomalyResult struct {
	Index       int     `json:"index"`
	Score       float64 `json:"score"`
	IsAnomalous bool    `json:"isAnomalous"`
}

// ActionEvent describes a corrective action performed by an external actor.
type ActionEvent struct {
	Action     string    `json:"action"`
	PID        int32     `json:"pid,omitempty"`
	Note       string    `json:"note,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// ComparisonRecord holds two readings bracketing an action and their difference.
type ComparisonRecord struct {
	Before   MetricSample `json:"before"`
	After    MetricSample `json:"after"`
	CPUDelta float64      `json:"cpuDelta"`
	MemDelta float64      `json:"memDelta"`
	Action   *ActionEvent `json:"action,omitempty"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
