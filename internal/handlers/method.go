package handlers

import (
	"errors"
	"net/http"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/middleware"
	"flickr-mirror/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MethodHandler proxies single Flickr API calls, mostly for debugging
type MethodHandler struct {
	api  services.RemoteAPI
	auth *services.AuthService
}

// NewMethodHandler creates a new method handler
func NewMethodHandler(api services.RemoteAPI, auth *services.AuthService) *MethodHandler {
	return &MethodHandler{
		api:  api,
		auth: auth,
	}
}

// Call handles GET /method/{name}/. The query string is forwarded as
// parameters; the call is signed when the caller has a linked account.
func (h *MethodHandler) Call(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	method := chi.URLParam(r, "name")

	var cred *flickr.Credential
	if userID := middleware.GetUserID(ctx); userID != "" {
		_, c, err := h.auth.Credential(ctx, userID)
		switch {
		case err == nil:
			cred = c
		case !errors.Is(err, services.ErrNotLinked):
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to load credential")
			respondError(w, "Failed to load credential", http.StatusInternalServerError)
			return
		}
	}

	params := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	body, err := h.api.Raw(ctx, cred, method, params)
	if err != nil {
		var apiErr *flickr.APIError
		if errors.As(err, &apiErr) {
			respondError(w, apiErr.Message, http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("method", method).Msg("Flickr call failed")
		respondError(w, "Flickr call failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
