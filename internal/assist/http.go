// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package assist

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tosho/internal/platform/apperr"
	"github.com/taibuivan/tosho/internal/platform/middleware"
	requestutil "github.com/taibuivan/tosho/internal/platform/request"
	"github.com/taibuivan/tosho/internal/platform/respond"
)

// Handler exposes the reading-assistant endpoints. All of them
// require an authenticated reader: the assistant spends paid tokens.
type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// Routes returns a [chi.Router] configured with the assist endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Post("/answer", handler.answer)
	router.Post("/define", handler.define)
	router.Post("/translate", handler.translate)

	return router
}

type assistRequest struct {
	// Passage is the selected book text the request is about.
	Passage string `json:"passage"`

	Question string `json:"question,omitempty"`
	Word     string `json:"word,omitempty"`
	Language string `json:"language,omitempty"`
}

type assistResponse struct {
	Text string `json:"text"`
}

/*
POST /api/v1/assist/answer.

Description: Answers a question about the supplied passage.

Request:
  - passage: string
  - question: string
*/
func (handler *Handler) answer(writer http.ResponseWriter, request *http.Request) {
	payload, err := decodeAssist(request, "question")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	text, err := handler.client.Answer(request.Context(), payload.Passage, payload.Question)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, assistResponse{Text: text})
}

/*
POST /api/v1/assist/define.

Description: Defines a word in the sense the passage uses it.

Request:
  - passage: string
  - word: string
*/
func (handler *Handler) define(writer http.ResponseWriter, request *http.Request) {
	payload, err := decodeAssist(request, "word")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	text, err := handler.client.Define(request.Context(), payload.Word, payload.Passage)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, assistResponse{Text: text})
}

/*
POST /api/v1/assist/translate.

Description: Translates the passage into the requested language.

Request:
  - passage: string
  - language: string
*/
func (handler *Handler) translate(writer http.ResponseWriter, request *http.Request) {
	payload, err := decodeAssist(request, "language")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	text, err := handler.client.Translate(request.Context(), payload.Passage, payload.Language)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, assistResponse{Text: text})
}

// decodeAssist parses the shared request shape and checks that the
// passage and the operation's own field are present.
func decodeAssist(request *http.Request, field string) (*assistRequest, error) {
	payload := &assistRequest{}
	if err := requestutil.DecodeJSON(request, payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Passage) == "" {
		return nil, apperr.ValidationError("passage must not be empty")
	}

	var value string
	switch field {
	case "question":
		value = payload.Question
	case "word":
		value = payload.Word
	case "language":
		value = payload.Language
	}
	if strings.TrimSpace(value) == "" {
		return nil, apperr.ValidationError(field + " must not be empty")
	}
	return payload, nil
}
