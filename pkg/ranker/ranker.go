// Package ranker orders process snapshots by resource usage.
package ranker

import (
	"math"
	"sort"

	"github.com/voluzi/taskpilot/pkg/types"
)

// Key selects the metric a snapshot is ranked by.
type Key func(types.ProcessEntry) float64

var (
	ByCPU    Key = func(e types.ProcessEntry) float64 { return e.CPUPercent }
	ByMemory Key = func(e types.ProcessEntry) float64 { return e.MemPercent }
)

// KeyFromString maps "cpu" and "memory" to their keys.
func KeyFromString(name string) (Key, bool) {
	switch name {
	case "cpu", "":
		return ByCPU, true
	case "memory", "mem":
		return ByMemory, true
	default:
		return nil, false
	}
}

// Rank returns up to k entries ordered by CPU percent.
func Rank(snapshot []types.ProcessEntry, k int) []types.ProcessEntry {
	return RankBy(snapshot, k, ByCPU)
}

// RankBy returns up to k entries ordered by key descending, ties broken by
// ascending pid. Entries whose key is NaN go last, by ascending pid.
// The snapshot itself is left untouched.
func RankBy(snapshot []types.ProcessEntry, k int, key Key) []types.ProcessEntry {
	if k <= 0 || len(snapshot) == 0 {
		return []types.ProcessEntry{}
	}

	candidates := make([]types.ProcessEntry, len(snapshot))
	copy(candidates, snapshot)

	sort.Slice(candidates, func(i, j int) bool {
		vi, vj := key(candidates[i]), key(candidates[j])
		ni, nj := math.IsNaN(vi), math.IsNaN(vj)
		switch {
		case ni && nj:
			return candidates[i].PID < candidates[j].PID
		case ni:
			return false
		case nj:
			return true
		case vi == vj:
			return candidates[i].PID < candidates[j].PID
		default:
			return vi > vj
		}
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
