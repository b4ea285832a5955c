package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lv-tickettrader/internal/auth"
	"lv-tickettrader/internal/events"
	"lv-tickettrader/internal/favorites"
	"lv-tickettrader/internal/httputil"
	"lv-tickettrader/internal/trading"
)

type RouterDeps struct {
	AuthHandler      *auth.Handler
	TradeHandler     *trading.Handler
	EventsHandler    *events.Handler
	FavoritesHandler *favorites.Handler // nil under the memory driver
	AuthService      *auth.Service
	WSHandler        http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", d.AuthHandler.Register)
		r.Post("/auth/login", d.AuthHandler.Login)
		r.Get("/events/search", d.EventsHandler.Search)
		r.Get("/ws", d.WSHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Post("/trade", withUser(d.TradeHandler.Trade))
			r.Get("/wallet/cash", withUser(d.TradeHandler.Cash))
			r.Get("/wallet/positions", withUser(d.TradeHandler.Positions))
			if d.FavoritesHandler != nil {
				r.Get("/favorites", withUser(d.FavoritesHandler.List))
				r.Post("/favorites", withUser(d.FavoritesHandler.Add))
				r.Delete("/favorites", withUser(d.FavoritesHandler.Remove))
			}
		})
	})

	return r
}

func withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		next(w, r, userID)
	}
}
