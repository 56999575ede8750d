package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestions(t *testing.T) {
	got, err := ParseSuggestions(`{"suggestions":["Skizze zeichnen"," Holz kaufen ","", "Zuschneiden", "Extra"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Skizze zeichnen", "Holz kaufen", "Zuschneiden"}, got)
}

func TestParseSuggestions_Fenced(t *testing.T) {
	got, err := ParseSuggestions("```json\n{\"suggestions\":[\"a\",\"b\",\"c\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestParseSuggestions_Invalid(t *testing.T) {
	_, err := ParseSuggestions("not json")
	assert.ErrorIs(t, err, ErrProvider)

	_, err = ParseSuggestions(`{"other":[]}`)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan(`{"title":"Vogelhaus","note":"Ein Haus für Meisen.","todos":["Maße festlegen",3,"Holz kaufen"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Vogelhaus", p.Title)
	assert.Equal(t, "Ein Haus für Meisen.", p.Note)
	assert.Equal(t, []string{"Maße festlegen", "Holz kaufen"}, p.Todos)
}

func TestParsePlan_MissingTitle(t *testing.T) {
	_, err := ParsePlan(`{"title":"  ","note":"x","todos":[]}`)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestParsePlan_NoTodos(t *testing.T) {
	p, err := ParsePlan(`{"title":"T","note":"N"}`)
	require.NoError(t, err)
	assert.NotNil(t, p.Todos)
	assert.Empty(t, p.Todos)
}

func TestSplitTodoReply(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantIntro string
		wantTodos []string
	}{
		{
			name:      "plain trailing array",
			in:        "Hier ein paar Ideen.\n[\"Skizze\", \"Material\"]",
			wantIntro: "Hier ein paar Ideen.",
			wantTodos: []string{"Skizze", "Material"},
		},
		{
			name:      "fenced array",
			in:        "Los geht's:\n```json\n[\"A\",\"B\"]\n```",
			wantIntro: "Los geht's:",
			wantTodos: []string{"A", "B"},
		},
		{
			name:      "bracket inside item",
			in:        "Intro [Hinweis]\n[\"Teil [1] bauen\"]",
			wantIntro: "Intro [Hinweis]",
			wantTodos: []string{"Teil [1] bauen"},
		},
		{
			name:      "no array",
			in:        "  Nur Text [ohne] Liste. ",
			wantIntro: "Nur Text [ohne] Liste.",
			wantTodos: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intro, todos := SplitTodoReply(tt.in)
			assert.Equal(t, tt.wantIntro, intro)
			assert.Equal(t, tt.wantTodos, todos)
		})
	}
}
