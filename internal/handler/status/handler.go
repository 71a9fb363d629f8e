// Package status is the local bridge between the client core and the UI
// windows: session list, connection state, a live SSE event feed, and
// metrics. It is read-only toward the servers; nothing here sends anything
// upstream.
package status

import (
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxdesk/client/internal/model/session"
	"github.com/voxdesk/client/internal/service/registry"
	"github.com/voxdesk/client/internal/service/stream"
	"github.com/voxdesk/client/internal/service/voices"
	"github.com/voxdesk/client/pkg/utils"
)

// feedEvent is one item on a window's SSE feed.
type feedEvent struct {
	Name    string
	Payload any
}

// Handler serves the status surface for every open window.
type Handler struct {
	sessions    *registry.Manager
	stream      *stream.Client
	assignments *voices.Assignments

	mu          sync.Mutex
	subscribers map[int]chan feedEvent
	nextID      int
}

// New wires the handler to the core components.
func New(sessions *registry.Manager, streamClient *stream.Client, assignments *voices.Assignments) *Handler {
	return &Handler{
		sessions:    sessions,
		stream:      streamClient,
		assignments: assignments,
		subscribers: make(map[int]chan feedEvent),
	}
}

// RegisterRoutes mounts the status routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Get("/api/sessions", h.listSessions)
	r.Get("/api/stream/status", h.streamStatus)
	r.Get("/api/events", h.eventFeed)
	r.Get("/api/voices", h.listVoices)
	r.Put("/api/voices/{sessionID}", h.assignVoice)
	r.Delete("/api/voices/{sessionID}", h.removeVoice)
	r.Handle("/metrics", promhttp.Handler())
}

// Broadcast pushes an event to every connected window's feed. Slow feeds
// drop events rather than block the caller.
func (h *Handler) Broadcast(name string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- feedEvent{Name: name, Payload: payload}:
		default:
		}
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionView decorates a session with its computed liveness.
type sessionView struct {
	session.Session
	Active bool `json:"active"`
}

func (h *Handler) listSessions(w http.ResponseWriter, _ *http.Request) {
	all := h.sessions.Sessions()
	views := make([]sessionView, len(all))
	for i, s := range all {
		views[i] = sessionView{Session: s, Active: registry.IsActive(s, registry.ActiveThreshold)}
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

func (h *Handler) streamStatus(w http.ResponseWriter, _ *http.Request) {
	state := h.stream.State()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"state":     state,
		"connected": state == stream.StateConnected,
	})
}

func (h *Handler) eventFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	ch := make(chan feedEvent, 16)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}()

	log.Printf("[status] window attached to event feed")
	utils.SendSSEEvent(w, flusher, "status", map[string]string{"message": "feed established"})

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[status] window detached from event feed")
			return
		case evt := <-ch:
			utils.SendSSEEvent(w, flusher, evt.Name, evt.Payload)
		}
	}
}

func (h *Handler) listVoices(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.assignments.All())
}

func (h *Handler) assignVoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	voice, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 256))
	if err != nil || len(voice) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "voice name body is required")
		return
	}

	h.assignments.Assign(sessionID, string(voice))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID, "voice": string(voice)})
}

func (h *Handler) removeVoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	h.assignments.Remove(sessionID)
	w.WriteHeader(http.StatusNoContent)
}
