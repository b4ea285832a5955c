package favorites

import (
	"net/http"

	"lv-tickettrader/internal/httputil"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type addRequest struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, accountID string) {
	list, err := h.store.List(r.Context(), accountID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if list == nil {
		list = []Favorite{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request, accountID string) {
	var req addRequest
	if err := httputil.ReadJSON(r, &req); err != nil || req.EventID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "event_id required"})
		return
	}
	if err := h.store.Add(r.Context(), accountID, req.EventID, req.EventName); err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request, accountID string) {
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "event_id required"})
		return
	}
	if err := h.store.Remove(r.Context(), accountID, eventID); err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
