package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"flickr-mirror/internal/middleware"
	"flickr-mirror/internal/services"

	"github.com/rs/zerolog/log"
)

// SyncResponse is returned when a sync is accepted
type SyncResponse struct {
	Status    string `json:"status"`
	AccountID int64  `json:"account_id"`
}

// SyncHandler starts account syncs in the background. Progress is pushed
// over the websocket.
type SyncHandler struct {
	ctx  context.Context
	auth *services.AuthService
	sync *services.SyncService

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

// NewSyncHandler creates a new sync handler. Background syncs stop when ctx
// is cancelled.
func NewSyncHandler(ctx context.Context, auth *services.AuthService, syncService *services.SyncService) *SyncHandler {
	return &SyncHandler{
		ctx:     ctx,
		auth:    auth,
		sync:    syncService,
		running: make(map[string]bool),
	}
}

// Sync handles POST /api/v1/sync. An unlinked caller is redirected to the
// Flickr authorization page instead.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	account, _, err := h.auth.Credential(r.Context(), userID)
	if errors.Is(err, services.ErrNotLinked) {
		h.authorize(w, r, userID)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load account")
		respondError(w, "Failed to load account", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	if h.running[userID] {
		h.mu.Unlock()
		respondError(w, "Sync already running", http.StatusConflict)
		return
	}
	h.running[userID] = true
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			delete(h.running, userID)
			h.mu.Unlock()
		}()

		if _, err := h.sync.SyncAccount(h.ctx, account); err != nil {
			log.Error().
				Err(err).
				Str("user_id", userID).
				Int64("account_id", account.ID).
				Msg("Sync failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, SyncResponse{Status: "started", AccountID: account.ID})
}

// authorize starts the OAuth handshake and sends the caller to approve it
func (h *SyncHandler) authorize(w http.ResponseWriter, r *http.Request, userID string) {
	step, err := h.auth.Begin(r.Context(), userID, callbackURL(r))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to begin authorization")
		respondError(w, "Failed to start Flickr authorization", http.StatusInternalServerError)
		return
	}
	target := authPath
	if step.Kind == services.AuthRedirect {
		target = step.RedirectURL
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Wait blocks until every background sync has returned
func (h *SyncHandler) Wait() {
	h.wg.Wait()
}
