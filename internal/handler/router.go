package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/voxdesk/client/internal/handler/status"
	"github.com/voxdesk/client/internal/middleware"
)

// NewRouter wires the local status surface.
func NewRouter(statusHandler *status.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	statusHandler.RegisterRoutes(r)

	return r
}
