package ai

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Chat modes accepted by ChatSystemPrompt.
const (
	ModeConversation = "conversation"
	ModeTodo         = "todo"
)

// ProjectContext is the project state injected into chat prompts.
type ProjectContext struct {
	Title     string
	Notes     []string
	OpenTodos []string
	AllTodos  []string
}

// Reference is a note or todo the user explicitly pinned to a chat turn.
type Reference struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

const projectPlanSystem = "You are an expert project manager. Analyze the conversation history and extract a structured project plan. " +
	"The title should be short. The note should capture the essence. The todos should be concrete next steps."

// ResurfacingRequest asks for a single motivating sentence about a project
// the user has not opened for a while.
func ResurfacingRequest(title string, notes []string) Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Projekt: %q\n", title)
	if len(notes) > 0 {
		fmt.Fprintf(&b, "Notizen dazu: %s\n", strings.Join(notes, "; "))
	}
	b.WriteString("\nSchreibe eine sehr kurze, motivierende, einzeilige Nachricht (max. 1 Satz), " +
		"die den Nutzer einlädt, an diesem Projekt weiterzumachen. Sei locker, kein Druck. Antworte NUR mit der Nachricht.")
	return Request{Feature: FeatureResurfacing, Prompt: b.String()}
}

// SuggestTodosRequest asks for exactly three todos for a project idea.
func SuggestTodosRequest(title, note string) Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Du bist ein Produkt-Experte. Generiere 3 kurze, konkrete und handlungsorientierte To-Dos für diese Projektidee: %q.\n", title)
	if note != "" {
		fmt.Fprintf(&b, "Der Nutzer hat dazu folgende Gedanken notiert: %q. Berücksichtige diese bei den Vorschlägen.\n", note)
	}
	b.WriteString("Antworte nur mit den 3 To-Dos in einer Liste.")

	return Request{
		Feature: FeatureSuggestTodos,
		Prompt:  b.String(),
		Schema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"suggestions": {
					Type:     genai.TypeArray,
					Items:    &genai.Schema{Type: genai.TypeString},
					MinItems: ptr[int64](3),
					MaxItems: ptr[int64](3),
				},
			},
			Required: []string{"suggestions"},
		},
	}
}

// ProjectPlanRequest turns a brainstorm conversation into a title, a
// summary note and a list of first steps.
func ProjectPlanRequest(messages []Message) Request {
	return Request{
		Feature:  FeatureProjectPlan,
		System:   projectPlanSystem,
		Messages: messages,
		Schema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title": {Type: genai.TypeString, Description: "A concise, catchy title for the project."},
				"note":  {Type: genai.TypeString, Description: "A detailed summary of the project idea based on the conversation."},
				"todos": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "A list of immediate, actionable steps to get started.",
				},
			},
			Required: []string{"title", "note", "todos"},
		},
	}
}

// ChatRequest builds a project chat turn. Unknown modes are treated as
// conversation.
func ChatRequest(mode string, pc ProjectContext, refs []Reference, messages []Message) Request {
	return Request{
		Feature:  FeatureChat,
		System:   ChatSystemPrompt(mode, pc, refs),
		Messages: messages,
	}
}

func ChatSystemPrompt(mode string, pc ProjectContext, refs []Reference) string {
	var b strings.Builder

	if mode == ModeTodo {
		fmt.Fprintf(&b, "Du bist ein spezialisierter Aufgaben-Planer für das Projekt %q.\n", pc.Title)
		b.WriteString("Deine Aufgabe ist es, basierend auf der Nutzeranfrage und dem Kontext konkret umsetzbare To-Dos zu generieren.\n\n")
		writeContext(&b, pc.Title, pc.Notes, pc.AllTodos, "Bestehende Aufgaben", "Keine Aufgaben vorhanden.")
		writeRefs(&b, "SPEZIELLER KONTEXT (Vom Nutzer ausgewählt)", refs)
		b.WriteString(`REGELN FÜR TO-DO GENERATION:
1. Antworte mit einer SEHR KURZEN Einleitung (maximal 2 Sätze).
2. Die Aufgaben selbst müssen AUSSCHLIESSLICH im JSON-Array stehen.
3. **WICHTIG**: Erstelle KEINE Listen im Markdown-Format (z.B. mit Aufzählungspunkten oder Nummern) im Textteil.
4. Beispiel für das JSON-Array: ["Aufgabe 1", "Aufgabe 2"]
5. Formuliere die Aufgaben kurz, präzise und aktionsorientiert.
6. Antworte am Ende NUR noch mit dem JSON-Array, kein Text danach.`)
		return b.String()
	}

	fmt.Fprintf(&b, "Du bist ein erfahrener Sparringspartner und Kollege für das Projekt %q.\n", pc.Title)
	b.WriteString("Deine Rolle ist es, Ideen zu reflektieren, Impulse zu geben und dem Nutzer zu helfen, sein Projekt voranzubringen.\n\n")
	writeContext(&b, pc.Title, pc.Notes, pc.OpenTodos, "Offene Aufgaben", "Keine offenen Aufgaben.")
	writeRefs(&b, "ZUSÄTZLICHER KONTEXT (Beziehe dich primär darauf)", refs)
	b.WriteString(`WICHTIG FÜR DEN DIALOG:
- Antworte wie in einer guten Unterhaltung: Kompetent, direkt und ohne unnötige Floskeln.
- Nutze Markdown (Fettdruck, Listen) sinnvoll, um deine Antworten zu strukturieren.
- **WICHTIG**: Sende NIEMALS eine Antwort, die nur aus einem JSON-Array (z.B. ["Aufgabe 1", ...]) besteht. Nutze stattdessen normale Markdown-Aufzählungszeichen.
- Sei konstruktiv-kritisch, wenn nötig, und bringe eigene Ideen ein.
- Antworte auf Deutsch und halte dich kompakt.`)
	return b.String()
}

func writeContext(b *strings.Builder, title string, notes, todos []string, todoLabel, noTodos string) {
	b.WriteString("KONTEXT DES PROJEKTS:\n")
	fmt.Fprintf(b, "Titel: %s\n", title)
	if len(notes) > 0 {
		fmt.Fprintf(b, "Notizen:\n- %s\n", strings.Join(notes, "\n- "))
	} else {
		b.WriteString("Keine Notizen vorhanden.\n")
	}
	if len(todos) > 0 {
		fmt.Fprintf(b, "%s:\n- %s\n", todoLabel, strings.Join(todos, "\n- "))
	} else {
		b.WriteString(noTodos + "\n")
	}
	b.WriteString("\n")
}

func writeRefs(b *strings.Builder, heading string, refs []Reference) {
	if len(refs) == 0 {
		return
	}
	b.WriteString(heading + ":\n")
	for i, r := range refs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "%s: %s\nInhalt: %s\n", strings.ToUpper(r.Type), r.Title, r.Content)
	}
	b.WriteString("\n")
}

func ptr[T any](v T) *T { return &v }
