package resurfacing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hubideas/hubideas/internal/projects"
)

func TestEligible(t *testing.T) {
	day := 24 * time.Hour
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	tests := []struct {
		name    string
		project projects.Project
		want    bool
	}{
		{"stale never reminded", projects.Project{LastOpenedAt: now.Add(-22 * day)}, true},
		{"stale reminded long ago", projects.Project{LastOpenedAt: now.Add(-60 * day), LastRemindedAt: at(15 * day)}, true},
		{"opened exactly 21 days ago", projects.Project{LastOpenedAt: now.Add(-21 * day)}, false},
		{"fresh", projects.Project{LastOpenedAt: now.Add(-3 * day)}, false},
		{"recently reminded", projects.Project{LastOpenedAt: now.Add(-60 * day), LastRemindedAt: at(13 * day)}, false},
		{"reminded exactly 14 days ago", projects.Project{LastOpenedAt: now.Add(-60 * day), LastRemindedAt: at(14 * day)}, false},
		{"archived", projects.Project{IsArchived: true, LastOpenedAt: now.Add(-90 * day)}, false},
		{"reopened after reminder", projects.Project{LastOpenedAt: now.Add(-1 * day), LastRemindedAt: at(30 * day)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.project, now))
		})
	}
}

func TestMessageUnion(t *testing.T) {
	var m Message = AIMessage{Text: "ai"}
	_, isAI := m.(AIMessage)
	assert.True(t, isAI)
	assert.Equal(t, "ai", m.Body())

	m = FallbackMessage{Text: fillTemplate("Weiter mit [Projektname]!", "X")}
	_, isAI = m.(AIMessage)
	assert.False(t, isAI)
	assert.Equal(t, "Weiter mit X!", m.Body())
}
