package handlers

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/PortNumber53/simple-publish-engine/internal/engine"
)

// realtimeHub fans engine events out to websocket subscribers. Subscriptions
// are keyed by account id; the key "*" receives everything.
type realtimeHub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

func newRealtimeHub() *realtimeHub {
	return &realtimeHub{
		conns: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *realtimeHub) add(key string, c *websocket.Conn) {
	if h == nil || c == nil || strings.TrimSpace(key) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.conns[key]
	if m == nil {
		m = make(map[*websocket.Conn]struct{})
		h.conns[key] = m
	}
	m[c] = struct{}{}
}

func (h *realtimeHub) remove(key string, c *websocket.Conn) {
	if h == nil || c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.conns[key]
	if m == nil {
		return
	}
	delete(m, c)
	if len(m) == 0 {
		delete(h.conns, key)
	}
}

func (h *realtimeHub) broadcast(key string, msg []byte) {
	if h == nil || len(msg) == 0 {
		return
	}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, 8)
	for c := range h.conns[key] {
		conns = append(conns, c)
	}
	for c := range h.conns["*"] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := websocket.Message.Send(c, string(msg)); err != nil {
			_ = c.Close()
			h.remove(key, c)
			h.remove("*", c)
		}
	}
}

type realtimeEvent struct {
	Type      string `json:"type"`
	AccountID string `json:"accountId,omitempty"`
	PostID    string `json:"postId,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	At        string `json:"at"`
}

// relayEvent is the engine listener; it flattens an engine.Event into the
// wire shape and broadcasts it.
func (h *Handler) relayEvent(ev engine.Event) {
	out := realtimeEvent{
		Type: string(ev.Type),
		At:   ev.At.UTC().Format(time.RFC3339),
	}
	key := "*"
	if ev.Account != nil {
		out.AccountID = ev.Account.ID
		key = ev.Account.ID
	}
	if ev.Post != nil {
		out.PostID = ev.Post.ID
		out.Status = ev.Post.Status
		out.AccountID = ev.Post.AccountID
		key = ev.Post.AccountID
		if ev.Post.Error != nil {
			out.Error = *ev.Post.Error
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		log.Printf("[Realtime] marshal_failed type=%s err=%v", ev.Type, err)
		return
	}
	h.rt.broadcast(key, b)
}

func isLocalhostRemoteAddr(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil && h != "" {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

// internalWSAllowed gates backend WS connections. In production set
// INTERNAL_WS_SECRET and send it via X-Internal-WS-Secret from the proxy.
func internalWSAllowed(r *http.Request) bool {
	sec := strings.TrimSpace(os.Getenv("INTERNAL_WS_SECRET"))
	// Dev convenience: loopback connections are always allowed.
	if isLocalhostRemoteAddr(r.RemoteAddr) {
		return true
	}
	if sec == "" {
		return false
	}
	return strings.TrimSpace(r.Header.Get("X-Internal-WS-Secret")) == sec
}

// EventsWebSocket streams publish lifecycle events for one account (or all
// accounts with accountId=*).
//
// URL: /api/events/ws?accountId=...
func (h *Handler) EventsWebSocket(w http.ResponseWriter, r *http.Request) {
	if !internalWSAllowed(r) {
		log.Printf("[RealtimeWS] forbidden remote=%s host=%s", r.RemoteAddr, r.Host)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	key := strings.TrimSpace(r.URL.Query().Get("accountId"))
	if key == "" {
		http.Error(w, "missing_accountId", http.StatusBadRequest)
		return
	}

	wsServer := websocket.Server{
		// The default origin check 403s when Origin doesn't match Host; this
		// WS is internal, so any origin is accepted (auth is internalWSAllowed).
		Handshake: func(cfg *websocket.Config, req *http.Request) error {
			return nil
		},
		Handler: func(c *websocket.Conn) {
			log.Printf("[RealtimeWS] connect accountId=%s remote=%s", key, r.RemoteAddr)
			h.rt.add(key, c)
			defer h.rt.remove(key, c)
			defer log.Printf("[RealtimeWS] disconnect accountId=%s remote=%s", key, r.RemoteAddr)

			hello := realtimeEvent{Type: "hello", AccountID: key, At: time.Now().UTC().Format(time.RFC3339)}
			if b, err := json.Marshal(hello); err == nil {
				_ = websocket.Message.Send(c, string(b))
			}

			// Read loop keeps the connection open and detects disconnects.
			for {
				var ignored string
				if err := websocket.Message.Receive(c, &ignored); err != nil {
					break
				}
			}
		},
	}
	wsServer.ServeHTTP(w, r)
}
