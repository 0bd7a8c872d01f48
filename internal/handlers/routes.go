package handlers

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes wires every engine-facing endpoint.
func RegisterRoutes(h *Handler, r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	// Accounts
	r.HandleFunc("/api/accounts", h.CreateAccount).Methods("POST")
	r.HandleFunc("/api/accounts", h.ListAccounts).Methods("GET")
	r.HandleFunc("/api/accounts/{id}", h.GetAccount).Methods("GET")
	r.HandleFunc("/api/accounts/{id}", h.UpdateAccount).Methods("PUT")
	r.HandleFunc("/api/accounts/{id}", h.DeleteAccount).Methods("DELETE")

	// Posts
	r.HandleFunc("/api/accounts/{id}/posts", h.SchedulePost).Methods("POST")
	r.HandleFunc("/api/accounts/{id}/posts", h.ListAccountPosts).Methods("GET")
	r.HandleFunc("/api/posts", h.ListPosts).Methods("GET")
	r.HandleFunc("/api/posts/{id}", h.GetPost).Methods("GET")
	r.HandleFunc("/api/posts/{id}/cancel", h.CancelPost).Methods("POST")
	r.HandleFunc("/api/posts/{id}/publish", h.PublishPostNow).Methods("POST")

	// Platform metadata
	r.HandleFunc("/api/platforms/{platform}/limits", h.GetPlatformLimits).Methods("GET")

	// Realtime events
	r.HandleFunc("/api/events/ws", h.EventsWebSocket)
}
