// Package handlers is the thin HTTP surface over the publishing engine.
// Authentication and multi-tenant routing live in the surrounding system;
// this service is meant to sit behind it.
package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/engine"
	"github.com/PortNumber53/simple-publish-engine/internal/media"
	"github.com/PortNumber53/simple-publish-engine/internal/models"
)

type Handler struct {
	engine      *engine.Engine
	rt          *realtimeHub
	probeClient *http.Client
}

func New(eng *engine.Engine) *Handler {
	h := &Handler{
		engine:      eng,
		rt:          newRealtimeHub(),
		probeClient: &http.Client{Timeout: 10 * time.Second},
	}
	// Relay every engine event to websocket subscribers.
	eng.Subscribe(h.relayEvent)
	return h
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in engine.AccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id, err := h.engine.AddAccount(r.Context(), in)
	if err != nil {
		if errors.Is(err, engine.ErrUnsupportedPlatform) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	acct, err := h.engine.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.engine.GetAccount(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	var (
		accounts []*models.Account
		err      error
	)
	switch {
	case r.URL.Query().Get("platform") != "":
		accounts, err = h.engine.ListAccountsByPlatform(r.Context(), r.URL.Query().Get("platform"))
	case r.URL.Query().Get("active") == "true":
		accounts, err = h.engine.ListActiveAccounts(r.Context())
	default:
		accounts, err = h.engine.ListAccounts(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var patch models.AccountPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := pathVar(r, "id")
	if err := h.engine.UpdateAccount(r.Context(), id, patch); err != nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	acct, _ := h.engine.GetAccount(r.Context(), id)
	writeJSON(w, http.StatusOK, acct)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RemoveAccount(r.Context(), pathVar(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type schedulePostRequest struct {
	Content models.PostContent `json:"content"`
	Options models.PostOptions `json:"options"`
}

func (h *Handler) SchedulePost(w http.ResponseWriter, r *http.Request) {
	accountID := pathVar(r, "id")
	var req schedulePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Best effort: fill missing image dimensions before the post is stored.
	if err := media.FillDimensions(r.Context(), h.probeClient, req.Content.Media); err != nil {
		log.Printf("[API] media_probe_failed accountId=%s err=%v", accountID, err)
	}

	post, err := h.engine.SchedulePost(r.Context(), accountID, req.Content, req.Options)
	if err != nil {
		var verr *engine.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"valid":  false,
				"errors": verr.Problems,
			})
		case errors.Is(err, engine.ErrUnknownAccount):
			writeError(w, http.StatusNotFound, "account not found")
		case errors.Is(err, engine.ErrInactiveAccount):
			writeError(w, http.StatusConflict, "account is inactive")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.engine.GetPost(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	var (
		posts []*models.PostRequest
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		posts, err = h.engine.GetPostsByStatus(r.Context(), status)
	} else {
		posts, err = h.engine.GetScheduledPosts(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *Handler) ListAccountPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.engine.GetPostsByAccount(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *Handler) CancelPost(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if !h.engine.CancelPost(r.Context(), id) {
		writeError(w, http.StatusConflict, "post is unknown or already published")
		return
	}
	post, _ := h.engine.GetPost(r.Context(), id)
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) PublishPostNow(w http.ResponseWriter, r *http.Request) {
	post, err := h.engine.PublishNow(r.Context(), pathVar(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownPost):
			writeError(w, http.StatusNotFound, "post not found")
		case errors.Is(err, engine.ErrUnknownAccount):
			writeError(w, http.StatusNotFound, "account not found")
		case errors.Is(err, engine.ErrInactiveAccount):
			writeError(w, http.StatusConflict, "account is inactive")
		case errors.Is(err, engine.ErrUnsupportedPlatform):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusConflict, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) GetPlatformLimits(w http.ResponseWriter, r *http.Request) {
	platform := pathVar(r, "platform")
	limits, ok := h.engine.GetPlatformLimits(platform)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown platform")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"platform":           platform,
		"limits":             limits,
		"rateLimitRemaining": h.engine.RateLimitRemaining(platform),
	})
}
