package rules

import (
	"sort"
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// Evaluate runs the Default table against s. See EvaluateWith.
func Evaluate(s types.Snapshot, now time.Time) []types.Alert {
	return EvaluateWith(Default, s, now)
}

// EvaluateWith tests every rule in table against s and returns the matching
// alerts sorted by ascending priority, ties in declaration order.
// It never fails; a rule that does not match simply does not fire.
func EvaluateWith(table []Rule, s types.Snapshot, now time.Time) []types.Alert {
	out := make([]types.Alert, 0, 4)
	for _, r := range table {
		if r.Predicate == nil || !r.Predicate(s) {
			continue
		}
		out = append(out, r.instantiate(s, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

func (r Rule) instantiate(s types.Snapshot, now time.Time) types.Alert {
	a := types.Alert{
		ID:             r.ID,
		Severity:       r.Severity,
		Priority:       r.Priority,
		Persistent:     r.Persistent,
		AutoHideAfter:  r.AutoHideAfter,
		Action:         r.Action,
		ActionLabel:    r.ActionLabel,
		Title:          r.Title,
		Recommendation: r.Recommendation,
		CreatedAt:      now,
	}
	if r.Message != nil {
		a.Message = r.Message(s)
	}
	return a
}
