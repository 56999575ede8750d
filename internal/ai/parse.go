package ai

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Plan is the structured project extracted from a brainstorm conversation.
type Plan struct {
	Title string   `json:"title"`
	Note  string   `json:"note"`
	Todos []string `json:"todos"`
}

// ParseSuggestions reads {"suggestions": [...]} and returns at most three
// non-empty entries.
func ParseSuggestions(text string) ([]string, error) {
	body := stripFences(text)
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: suggestions are not valid JSON", ErrProvider)
	}
	arr := gjson.Get(body, "suggestions")
	if !arr.IsArray() {
		return nil, fmt.Errorf("%w: suggestions missing", ErrProvider)
	}

	out := stringItems(arr)
	if len(out) > 3 {
		out = out[:3]
	}
	return out, nil
}

// ParsePlan reads {"title", "note", "todos"}. A plan without a title is
// rejected.
func ParsePlan(text string) (*Plan, error) {
	body := stripFences(text)
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: plan is not valid JSON", ErrProvider)
	}
	res := gjson.GetMany(body, "title", "note", "todos")

	p := &Plan{
		Title: strings.TrimSpace(res[0].String()),
		Note:  strings.TrimSpace(res[1].String()),
		Todos: stringItems(res[2]),
	}
	if p.Title == "" {
		return nil, fmt.Errorf("%w: plan has no title", ErrProvider)
	}
	return p, nil
}

// SplitTodoReply separates a todo-mode reply into its intro text and the
// trailing JSON string array. Replies without a parseable trailing array
// are returned unchanged with no todos.
func SplitTodoReply(text string) (string, []string) {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
	for i := strings.LastIndex(body, "["); i >= 0; i = strings.LastIndex(body[:i], "[") {
		tail := body[i:]
		if !gjson.Valid(tail) {
			continue
		}
		arr := gjson.Parse(tail)
		if !arr.IsArray() {
			continue
		}
		intro := trimOpenFence(body[:i])
		return intro, stringItems(arr)
	}
	return strings.TrimSpace(text), nil
}

// stripFences removes markdown code fences such as ```json around a
// JSON payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// trimOpenFence drops an opening fence left at the end of intro text.
func trimOpenFence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "```"); i >= 0 && !strings.Contains(s[i:], "\n") {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func stringItems(arr gjson.Result) []string {
	out := []string{}
	for _, v := range arr.Array() {
		if v.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(v.Str); s != "" {
			out = append(out, s)
		}
	}
	return out
}
