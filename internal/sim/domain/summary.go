package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EntityAction records one entity's resolved interaction within a turn.
type EntityAction struct {
	EntityID    string
	Interaction string
	Branch      string
	Roll        int
	Total       int
	Difficulty  int
	Success     bool
	Critical    bool
}

// ResourceDelta records the net change of one world resource over a turn.
type ResourceDelta struct {
	Resource string
	Delta    float64
}

// TurnSummary is the auditable record of one committed turn. Summaries are
// appended to a FIFO history capped at a configured maximum.
type TurnSummary struct {
	Turn      uint64
	Timestamp time.Time
	Duration  time.Duration
	Actions   []EntityAction
	Deltas    []ResourceDelta
	Digest    string
}

// BuildDigest renders the human-readable one-line digest for a summary.
func (s TurnSummary) BuildDigest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "turn %d: %d actions", s.Turn, len(s.Actions))
	criticals := 0
	for _, action := range s.Actions {
		if action.Critical {
			criticals++
		}
	}
	if criticals > 0 {
		fmt.Fprintf(&b, ", %d critical", criticals)
	}
	if len(s.Deltas) > 0 {
		fmt.Fprintf(&b, ", %d resource changes", len(s.Deltas))
	}
	return b.String()
}

// DiffResources computes per-resource deltas between two pools, in sorted
// key order for stable output.
func DiffResources(before, after map[string]float64) []ResourceDelta {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	deltas := make([]ResourceDelta, 0, len(keys))
	for k := range keys {
		if d := after[k] - before[k]; d != 0 {
			deltas = append(deltas, ResourceDelta{Resource: k, Delta: d})
		}
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Resource < deltas[j].Resource })
	return deltas
}
