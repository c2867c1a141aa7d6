// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package book implements the library catalog: browsing with combined
free-text and tag filters, per-book metadata read/write, cover
retrieval and replacement, archive upload, and the filesystem
reconciliation commands used by the CLI.

# Routing Strategy

  - Public (v1): catalog browsing, metadata and cover reads, download.
  - Restricted (v1): metadata writes, cover replacement and upload
    require an authenticated reader.

The handler translates between the web/JSON layer and the internal
domain [Service].
*/
package book

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taibuivan/tosho/internal/platform/apperr"
	"github.com/taibuivan/tosho/internal/platform/constants"
	"github.com/taibuivan/tosho/internal/platform/middleware"
	requestutil "github.com/taibuivan/tosho/internal/platform/request"
	"github.com/taibuivan/tosho/internal/platform/respond"
	"github.com/taibuivan/tosho/internal/platform/sec"
	"github.com/taibuivan/tosho/pkg/pagination"
	"github.com/taibuivan/tosho/pkg/query"
)

// Handler implements the HTTP layer for catalog browsing and book
// management.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with the book domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Public Catalog Endpoints
	router.Get("/", handler.listCovers)
	router.Get("/{filename}/metadata", handler.getMetadata)
	router.Get("/{filename}/cover", handler.getCover)
	router.Get("/{filename}/download", handler.download)

	// ## Library Management (Authenticated)
	router.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth)

		authed.Post("/{filename}/metadata", handler.updateMetadata)
		authed.Post("/{filename}/cover", handler.updateCover)
		authed.Post("/upload", handler.upload)
	})

	return router
}

// ViewerFrom derives the catalog viewer from the request's verified
// claims. Anonymous requests produce a viewer without a user ID.
func ViewerFrom(request *http.Request) Viewer {
	claims := requestutil.Claims(request)
	if claims == nil {
		return Viewer{}
	}

	viewer := Viewer{Role: sec.UserRole(claims.Role)}
	if id, err := uuid.Parse(claims.UserID); err == nil {
		viewer.UserID = &id
	}
	return viewer
}

/*
GET /api/v1/books.

Description: Lists catalog covers matching the combined filters.

Request:
  - title: string (all words must match, case-insensitive)
  - author: string
  - genre: string
  - tags: string (comma-separated; mixes tag names with reading statuses)
  - limit, page: int

Response:
  - 200: []CoverItem: Paginated catalog page with inlined covers
*/
func (handler *Handler) listCovers(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	queryParams := request.URL.Query()

	filter := Filter{
		Title:  queryParams.Get("title"),
		Author: queryParams.Get("author"),
		Genre:  queryParams.Get("genre"),
		Tags:   query.StringSlice(queryParams.Get("tags")),
	}

	books, total, err := handler.service.Covers(request.Context(), filter, ViewerFrom(request),
		paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, books, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /api/v1/books/{filename}/metadata.

Description: Retrieves the descriptive fields plus the caller's
merged tag view (reading status first, then persisted tags).

Response:
  - 200: Metadata: Success
  - 404: ErrNotFound: Unknown filename or insufficient access tier
*/
func (handler *Handler) getMetadata(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")

	metadata, err := handler.service.Metadata(request.Context(), filename, ViewerFrom(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, metadata)
}

/*
POST /api/v1/books/{filename}/metadata.

Description: Rewrites the descriptive fields and replaces the
caller's tag set in one transactional swap. Status vocabulary inside
the tag list updates the bookmark instead of creating tags.

Response:
  - 200: Metadata: The updated view
  - 401: ErrUnauthorized: Missing authentication
  - 404: ErrNotFound: Unknown filename
*/
func (handler *Handler) updateMetadata(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")
	if _, err := requiredUserUUID(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var update MetadataUpdate
	if err := requestutil.DecodeJSON(request, &update); err != nil {
		respond.Error(writer, request, err)
		return
	}

	metadata, err := handler.service.UpdateMetadata(request.Context(), filename, ViewerFrom(request), update)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, metadata)
}

/*
GET /api/v1/books/{filename}/cover.

Description: Streams the cover image bytes straight out of the
archive with their manifest media type.
*/
func (handler *Handler) getCover(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")

	data, mediaType, err := handler.service.Cover(request.Context(), filename, ViewerFrom(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Content-Type", mediaType)
	writer.WriteHeader(http.StatusOK)
	writer.Write(data)
}

/*
POST /api/v1/books/{filename}/cover.

Description: Replaces the cover entry inside the archive. The swap is
atomic on disk and drops any cached rendered content for the book.
*/
func (handler *Handler) updateCover(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")

	data, err := readUpload(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.UpdateCover(request.Context(), filename, ViewerFrom(request), data); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/books/upload.

Description: Accepts an EPUB archive, stores it under a canonical
slug filename and creates its catalog row from the embedded metadata.

Response:
  - 201: Book: The created catalog row
  - 409: ErrConflict: A book with the same canonical name exists
  - 422: ErrUnprocessable: Not a valid EPUB
*/
func (handler *Handler) upload(writer http.ResponseWriter, request *http.Request) {
	userID, err := requiredUserUUID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, constants.UploadMaxBytes)
	if err := request.ParseMultipartForm(constants.UploadMaxBytes); err != nil {
		respond.Error(writer, request, apperr.ValidationError("invalid multipart upload"))
		return
	}

	file, header, err := request.FormFile("file")
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("missing file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	created, err := handler.service.Upload(request.Context(), header.Filename, data, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

/*
GET /api/v1/books/{filename}/download.

Description: Serves the raw EPUB archive as an attachment.
*/
func (handler *Handler) download(writer http.ResponseWriter, request *http.Request) {
	filename := requestutil.Param(request, "filename")

	if _, err := handler.service.Get(request.Context(), filename, ViewerFrom(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}
	path, err := handler.service.ArchivePath(filename)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Content-Type", "application/epub+zip")
	writer.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(writer, request, path)
}

// readUpload pulls the image bytes from either a multipart "file"
// field or a raw request body.
func readUpload(request *http.Request) ([]byte, error) {
	request.Body = http.MaxBytesReader(nil, request.Body, constants.UploadMaxBytes)

	if err := request.ParseMultipartForm(constants.UploadMaxBytes); err == nil {
		file, _, err := request.FormFile("file")
		if err == nil {
			defer file.Close()
			return io.ReadAll(file)
		}
	}

	data, err := io.ReadAll(request.Body)
	if err != nil || len(data) == 0 {
		return nil, apperr.ValidationError("missing image payload")
	}
	return data, nil
}

func requiredUserUUID(request *http.Request) (uuid.UUID, error) {
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
