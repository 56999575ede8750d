package projects

import (
	"cmp"
	"slices"
	"time"
)

type SortMode string

const (
	SortSmart    SortMode = "smart"
	SortNewest   SortMode = "newest"
	SortActivity SortMode = "activity"
)

// ParseSortMode maps a query value to a SortMode, defaulting to smart.
func ParseSortMode(s string) SortMode {
	switch SortMode(s) {
	case SortNewest, SortActivity:
		return SortMode(s)
	}
	return SortSmart
}

const (
	activeWindow   = 14 * 24 * time.Hour
	remindedWindow = 7 * 24 * time.Hour
)

// Arrange orders dashboard cards. The smart mode builds three zones:
// recently opened projects (newest opened first), then recently reminded
// ones (newest reminder first), then everything else in shuffled order.
func Arrange(list []Summary, mode SortMode, now time.Time, shuffle func([]Summary)) []Summary {
	out := slices.Clone(list)

	switch mode {
	case SortNewest:
		slices.SortStableFunc(out, func(a, b Summary) int { return b.CreatedAt.Compare(a.CreatedAt) })
		return out
	case SortActivity:
		slices.SortStableFunc(out, func(a, b Summary) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
		return out
	}

	var active, reminded, rest []Summary
	for _, s := range out {
		switch {
		case now.Sub(s.LastOpenedAt) < activeWindow:
			active = append(active, s)
		case s.LastRemindedAt != nil && now.Sub(*s.LastRemindedAt) < remindedWindow:
			reminded = append(reminded, s)
		default:
			rest = append(rest, s)
		}
	}

	slices.SortStableFunc(active, func(a, b Summary) int { return b.LastOpenedAt.Compare(a.LastOpenedAt) })
	slices.SortStableFunc(reminded, func(a, b Summary) int {
		return cmp.Compare(b.LastRemindedAt.UnixNano(), a.LastRemindedAt.UnixNano())
	})
	if shuffle != nil {
		shuffle(rest)
	}

	return slices.Concat(active, reminded, rest)
}
