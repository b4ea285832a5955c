package events

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

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	city := r.URL.Query().Get("city")
	httputil.WriteJSON(w, http.StatusOK, h.store.Search(keyword, city))
}
