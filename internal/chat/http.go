// Copyright (c) 2026 Xit. All rights reserved.

package chat

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/moa-mel/xit-backend/internal/platform/request"
	"github.com/moa-mel/xit-backend/internal/platform/respond"
)

// Handler exposes the read-only REST surface of the chat system. Live
// traffic goes over the socket; history and room discovery are plain HTTP.
type Handler struct {
	router *Router
}

// NewHandler constructs a new [Handler].
func NewHandler(router *Router) *Handler {
	return &Handler{router: router}
}

// Routes returns a [chi.Router] with the chat REST endpoints.
//
// # Endpoints
//   - GET /rooms                  : Snapshot of live rooms.
//   - GET /rooms/{room}/messages  : Recent history for one room.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/rooms", handler.listRooms)
	router.Get("/rooms/{room}/messages", handler.roomHistory)

	return router
}

// listRooms handles GET /api/v1/chat/rooms requests.
func (handler *Handler) listRooms(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.router.registry.List())
}

// roomHistory handles GET /api/v1/chat/rooms/{room}/messages requests.
func (handler *Handler) roomHistory(writer http.ResponseWriter, request *http.Request) {
	roomName := requestutil.Param(request, "room")

	limit, _ := strconv.Atoi(request.URL.Query().Get("limit"))

	messages, err := handler.router.History(request.Context(), roomName, limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messages)
}
