// Copyright (c) 2026 Xit. All rights reserved.

package livestream

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/moa-mel/xit-backend/internal/platform/request"
	"github.com/moa-mel/xit-backend/internal/platform/respond"
	"github.com/moa-mel/xit-backend/internal/platform/validate"
	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// Handler implements the livestream HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the livestream endpoints.
//
// # Endpoints
//   - GET  /                  : Paginated list of live streams.
//   - GET  /{identifier}      : One stream, live or finished.
//   - POST /                  : Go live.
//   - POST /{identifier}/end  : End the caller's stream.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listActive)
	router.Get("/{identifier}", handler.get)
	router.Post("/", handler.start)
	router.Post("/{identifier}/end", handler.end)

	return router
}

// startRequest represents the JSON payload for going live.
type startRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// start handles POST /api/v1/livestreams requests.
//
// # Returns
//   - Writes HTTP 201 Created on success with the live stream.
//   - Writes HTTP 409 STREAM_ALREADY_LIVE if the caller is already live.
func (handler *Handler) start(writer http.ResponseWriter, request *http.Request) {
	owner, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input startRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	err = v.
		Required("title", input.Title).
		MaxLen("title", input.Title, 200).
		MaxLen("description", input.Description, 2000).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stream, err := handler.service.Start(request.Context(), owner, input.Title, input.Description)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, stream)
}

// end handles POST /api/v1/livestreams/{identifier}/end requests.
func (handler *Handler) end(writer http.ResponseWriter, request *http.Request) {
	caller, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stream, err := handler.service.End(request.Context(), caller, requestutil.Param(request, "identifier"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stream)
}

// get handles GET /api/v1/livestreams/{identifier} requests.
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	stream, err := handler.service.Get(request.Context(), requestutil.Param(request, "identifier"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stream)
}

// listActive handles GET /api/v1/livestreams requests.
func (handler *Handler) listActive(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	streams, total, err := handler.service.ListActive(request.Context(), page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, streams, pagination.NewMeta(page.Page, page.Limit, total))
}
