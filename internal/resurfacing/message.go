package resurfacing

import (
	"strings"
	"time"

	"github.com/hubideas/hubideas/internal/projects"
)

const (
	// fireProbability makes a daily trigger fire about every 4.5 days.
	fireProbability = 0.22
	staleAfter      = 21 * 24 * time.Hour
	cooldown        = 14 * 24 * time.Hour

	notificationTitle = "HubIdeas 👋"
	placeholder       = "[Projektname]"
)

var fallbackTemplates = []string{
	"Hey! Erinnerst du dich noch an [Projektname]? Vielleicht ist heute ein guter Tag, um weiterzumachen.",
	"[Projektname] wartet auf dich. Schon ein kleiner Schritt bringt dich weiter!",
	"Lust auf ein bisschen Fortschritt? [Projektname] freut sich auf dich.",
	"Zeit für ein Comeback: Wie wäre es mit einem kurzen Blick auf [Projektname]?",
	"Kleiner Schritt, große Wirkung. Mach heute weiter mit [Projektname].",
}

// Message is the notification body for one pass: either AIMessage or
// FallbackMessage.
type Message interface {
	Body() string
	isMessage()
}

type AIMessage struct {
	Text   string
	Tokens int64
}

func (m AIMessage) Body() string { return m.Text }
func (AIMessage) isMessage()     {}

// FallbackMessage is a filled template. Cause records why the AI path was
// not used.
type FallbackMessage struct {
	Text  string
	Cause error
}

func (m FallbackMessage) Body() string { return m.Text }
func (FallbackMessage) isMessage()     {}

func fillTemplate(tmpl, projectName string) string {
	return strings.ReplaceAll(tmpl, placeholder, projectName)
}

// Eligible reports whether p would be picked up by a pass running at now.
// It mirrors the candidate query.
func Eligible(p projects.Project, now time.Time) bool {
	if p.IsArchived {
		return false
	}
	if !p.LastOpenedAt.Before(now.Add(-staleAfter)) {
		return false
	}
	return p.LastRemindedAt == nil || p.LastRemindedAt.Before(now.Add(-cooldown))
}
