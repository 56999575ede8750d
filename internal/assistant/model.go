package assistant

import (
	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/ai"
)

const modeBrainstorm = "brainstorm"

type ChatRequest struct {
	ProjectID         uuid.UUID      `json:"projectId"`
	Messages          []ai.Message   `json:"messages" validate:"required,min=1,max=100,dive"`
	Mode              string         `json:"mode" validate:"omitempty,oneof=conversation todo"`
	ReferencedContext []ai.Reference `json:"referencedContext" validate:"max=20"`
	SaveHistory       bool           `json:"saveHistory"`
}

type SuggestTodosRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Note  string `json:"note" validate:"max=10000"`
}

type SuggestTodosResponse struct {
	Suggestions []string `json:"suggestions"`
}

type GenerateProjectRequest struct {
	Messages    []ai.Message `json:"messages" validate:"required,min=1,max=100,dive"`
	SaveHistory bool         `json:"saveHistory"`
}

type GenerateProjectResponse struct {
	ProjectID uuid.UUID `json:"projectId"`
	Title     string    `json:"title"`
}

type chunkEvent struct {
	Text string `json:"text"`
}

type todosEvent struct {
	Intro string   `json:"intro"`
	Todos []string `json:"todos"`
}

type doneEvent struct {
	Tokens int64 `json:"tokens"`
}

type errorEvent struct {
	Error string `json:"error"`
}
