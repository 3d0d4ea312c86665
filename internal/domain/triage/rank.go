package triage

import (
	"cmp"
	"slices"
)

// Compare orders results by priority, most urgent first.
func Compare(a, b Result) int {
	return cmp.Compare(a.Priority, b.Priority)
}

// SortByPriority sorts items in place by the priority of their triage
// result. tieBreak orders items of equal priority and may be nil; the sort
// is stable, so without a tie-break equal items keep their input order.
func SortByPriority[T any](items []T, result func(T) Result, tieBreak func(a, b T) int) {
	slices.SortStableFunc(items, func(a, b T) int {
		if c := Compare(result(a), result(b)); c != 0 {
			return c
		}
		if tieBreak == nil {
			return 0
		}
		return tieBreak(a, b)
	})
}
