// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package reader implements the in-browser reading surface: the
incremental NDJSON book stream, per-user bookmark reads and writes,
and the finished-state shortcut.

# Routing Strategy

  - Public (v1): the content stream works for anonymous visitors on
    standard-tier books; it simply starts at chapter zero.
  - Restricted (v1): bookmark operations require an authenticated
    reader, since a bookmark is per-user state.
*/
package reader

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taibuivan/tosho/internal/book"
	"github.com/taibuivan/tosho/internal/platform/apperr"
	"github.com/taibuivan/tosho/internal/platform/middleware"
	requestutil "github.com/taibuivan/tosho/internal/platform/request"
	"github.com/taibuivan/tosho/internal/platform/respond"
	"github.com/taibuivan/tosho/internal/tags"
)

// Handler implements the HTTP layer for the reading surface.
type Handler struct {
	service *Service
	tags    *tags.Service
}

func NewHandler(service *Service, tagService *tags.Service) *Handler {
	return &Handler{service: service, tags: tagService}
}

// Routes returns a [chi.Router] configured with the reader endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{filename}", handler.stream)

	router.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth)

		authed.Get("/{filename}/bookmark", handler.getBookmark)
		authed.Post("/{filename}/bookmark", handler.saveBookmark)
		authed.Post("/{filename}/finished", handler.markFinished)
	})

	return router
}

/*
GET /api/v1/reader/{filename}.

Description: Streams the book as newline-delimited JSON: one metadata
event, then one chapter event per spine entry, rotated to begin at
the caller's bookmarked chapter. Failures after the first byte arrive
as a terminal {"type":"error"} event on the stream itself.

Response:
  - 200: NDJSON event stream
  - 404: ErrNotFound: Unknown filename or insufficient access tier
*/
func (handler *Handler) stream(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")

	bookmark, err := handler.service.Open(request.Context(), filename, book.ViewerFrom(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Content-Type", "application/x-ndjson")
	writer.Header().Set("Cache-Control", "no-cache")
	writer.WriteHeader(http.StatusOK)

	flusher, _ := writer.(http.Flusher)
	encoder := json.NewEncoder(writer)
	emit := func(event any) error {
		if err := encoder.Encode(event); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	handler.service.Stream(request.Context(), filename, bookmark, emit)
}

/*
GET /api/v1/reader/{filename}/bookmark.

Description: Returns the caller's reading position. A book that was
never opened reads as chapter zero, position zero, status Unread.
*/
func (handler *Handler) getBookmark(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")
	userID, err := readerUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	bookmark, err := handler.tags.GetBookmark(request.Context(), filename, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, bookmark)
}

// saveBookmarkRequest is the inbound JSON schema for position saves.
type saveBookmarkRequest struct {
	ChapterIndex int     `json:"chapter_index"`
	Position     float64 `json:"position"`
}

/*
POST /api/v1/reader/{filename}/bookmark.

Description: Persists the caller's reading position. Creates the
bookmark row when the book was opened before bookmarks existed.

Request:
  - chapter_index: int (absolute spine index)
  - position: float (fractional intra-chapter offset, 0..1)
*/
func (handler *Handler) saveBookmark(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")
	userID, err := readerUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload saveBookmarkRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	bookmark, err := handler.tags.SaveBookmark(request.Context(), filename, userID, payload.ChapterIndex, payload.Position)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, bookmark)
}

/*
POST /api/v1/reader/{filename}/finished.

Description: Marks the book Finished for the caller, the same state
the "Finished" virtual tag reflects in metadata and catalog filters.
*/
func (handler *Handler) markFinished(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")
	userID, err := readerUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.tags.SetStatus(request.Context(), filename, userID, tags.StatusFinished); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func readerUserID(request *http.Request) (uuid.UUID, error) {
	raw, err := requestutil.RequiredUserID(request)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("invalid user identity")
	}
	return userID, nil
}
