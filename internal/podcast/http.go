// Copyright (c) 2026 Xit. All rights reserved.

package podcast

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/moa-mel/xit-backend/internal/platform/request"
	"github.com/moa-mel/xit-backend/internal/platform/respond"
	"github.com/moa-mel/xit-backend/internal/platform/validate"
	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// Handler implements the podcast HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the podcast endpoints.
//
// # Endpoints
//   - GET  /                       : Paginated public catalog.
//   - GET  /{identifier}           : One episode (drafts owner-only).
//   - POST /                       : Create a draft.
//   - POST /{identifier}/publish   : Publish the caller's draft.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listPublished)
	router.Get("/{identifier}", handler.get)
	router.Post("/", handler.create)
	router.Post("/{identifier}/publish", handler.publish)

	return router
}

// createRequest represents the JSON payload for a new draft episode.
type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AudioURL    string `json:"audio_url"`
}

// create handles POST /api/v1/podcasts requests.
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	owner, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	err = v.
		Required("title", input.Title).
		MaxLen("title", input.Title, 200).
		MaxLen("description", input.Description, 2000).
		Required("audio_url", input.AudioURL).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	episode, err := handler.service.Create(request.Context(), owner, CreateInput{
		Title:       input.Title,
		Description: input.Description,
		AudioURL:    input.AudioURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, episode)
}

// publish handles POST /api/v1/podcasts/{identifier}/publish requests.
func (handler *Handler) publish(writer http.ResponseWriter, request *http.Request) {
	caller, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	episode, err := handler.service.Publish(request.Context(), caller, requestutil.Param(request, "identifier"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, episode)
}

// get handles GET /api/v1/podcasts/{identifier} requests.
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	caller, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	episode, err := handler.service.Get(request.Context(), caller, requestutil.Param(request, "identifier"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, episode)
}

// listPublished handles GET /api/v1/podcasts requests.
func (handler *Handler) listPublished(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	episodes, total, err := handler.service.ListPublished(request.Context(), page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, episodes, pagination.NewMeta(page.Page, page.Limit, total))
}
