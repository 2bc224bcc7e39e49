// Copyright (c) 2026 Xit. All rights reserved.

package notification

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	requestutil "github.com/moa-mel/xit-backend/internal/platform/request"
	"github.com/moa-mel/xit-backend/internal/platform/respond"
	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// Handler exposes the recipient-facing feed endpoints. All routes require
// an authenticated user; the feed is always scoped to the caller.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the notification endpoints.
//
// # Endpoints
//   - GET   /             : Paginated feed, filterable by kind and unread.
//   - GET   /unread-count : Badge count.
//   - PATCH /{id}/read    : Mark one notification read.
//   - POST  /read-all     : Mark the whole feed read.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/unread-count", handler.unreadCount)
	router.Patch("/{id}/read", handler.markRead)
	router.Post("/read-all", handler.markAllRead)

	return router
}

// list handles GET /api/v1/notifications requests.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	identifier, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter := ListFilter{
		Unread: request.URL.Query().Get("unread") == "true",
	}
	if kind := Kind(request.URL.Query().Get("kind")); kind != "" {
		if !kind.Valid() {
			respond.Error(writer, request, apperr.ValidationError("Unknown notification kind"))
			return
		}
		filter.Kind = kind
	}

	page := pagination.FromRequest(request)

	notifications, total, err := handler.service.List(request.Context(), identifier, filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, notifications, pagination.NewMeta(page.Page, page.Limit, total))
}

// unreadCount handles GET /api/v1/notifications/unread-count requests.
func (handler *Handler) unreadCount(writer http.ResponseWriter, request *http.Request) {
	identifier, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.service.UnreadCount(request.Context(), identifier)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int{"count": count})
}

// markRead handles PATCH /api/v1/notifications/{id}/read requests.
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	identifier, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := strconv.ParseInt(requestutil.Param(request, "id"), 10, 64)
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid notification ID"))
		return
	}

	if err := handler.service.MarkRead(request.Context(), identifier, id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// markAllRead handles POST /api/v1/notifications/read-all requests.
func (handler *Handler) markAllRead(writer http.ResponseWriter, request *http.Request) {
	identifier, err := requestutil.RequiredIdentifier(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.MarkAllRead(request.Context(), identifier); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
