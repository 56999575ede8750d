package projects

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func card(name string, opened, created, updated time.Time, reminded *time.Time) Summary {
	return Summary{Project: Project{
		ID:             uuid.New(),
		Name:           name,
		LastOpenedAt:   opened,
		LastRemindedAt: reminded,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}}
}

func names(list []Summary) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

func ago(now time.Time, d time.Duration) time.Time { return now.Add(-d) }

func TestArrange_SmartZones(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	r2 := ago(now, 2*day)
	r5 := ago(now, 5*day)
	r10 := ago(now, 10*day)

	list := []Summary{
		card("old-never", ago(now, 60*day), now, now, nil),
		card("opened-3d", ago(now, 3*day), now, now, nil),
		card("reminded-5d", ago(now, 30*day), now, now, &r5),
		card("opened-1d", ago(now, day), now, now, nil),
		card("reminded-2d", ago(now, 40*day), now, now, &r2),
		card("reminded-10d", ago(now, 40*day), now, now, &r10),
	}

	var shuffled []string
	got := Arrange(list, SortSmart, now, func(rest []Summary) {
		shuffled = names(rest)
		// Reverse stands in for a random permutation.
		for i, j := 0, len(rest)-1; i < j; i, j = i+1, j-1 {
			rest[i], rest[j] = rest[j], rest[i]
		}
	})

	assert.Equal(t, []string{"old-never", "reminded-10d"}, shuffled)
	assert.Equal(t, []string{"opened-1d", "opened-3d", "reminded-2d", "reminded-5d", "reminded-10d", "old-never"}, names(got))
	// Input is not mutated.
	assert.Equal(t, "old-never", list[0].Name)
}

func TestArrange_OpenedWinsOverReminded(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := ago(now, time.Hour)
	list := []Summary{card("both", ago(now, 2*time.Hour), now, now, &r)}

	got := Arrange(list, SortSmart, now, nil)
	assert.Equal(t, []string{"both"}, names(got))
}

func TestArrange_NewestAndActivity(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	a := card("a", now, ago(now, 3*time.Hour), ago(now, time.Hour), nil)
	b := card("b", now, ago(now, time.Hour), ago(now, 5*time.Hour), nil)
	c := card("c", now, ago(now, 2*time.Hour), ago(now, 2*time.Hour), nil)

	assert.Equal(t, []string{"b", "c", "a"}, names(Arrange([]Summary{a, b, c}, SortNewest, now, nil)))
	assert.Equal(t, []string{"a", "c", "b"}, names(Arrange([]Summary{a, b, c}, SortActivity, now, nil)))
}

func TestParseSortMode(t *testing.T) {
	assert.Equal(t, SortNewest, ParseSortMode("newest"))
	assert.Equal(t, SortActivity, ParseSortMode("activity"))
	assert.Equal(t, SortSmart, ParseSortMode(""))
	assert.Equal(t, SortSmart, ParseSortMode("bogus"))
}
