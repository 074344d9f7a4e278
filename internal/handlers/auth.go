package handlers

import (
	"html/template"
	"net/http"

	"flickr-mirror/internal/middleware"
	"flickr-mirror/internal/services"

	"github.com/rs/zerolog/log"
)

const (
	authPath         = "/auth/"
	authCompletePath = "/auth/complete/"
)

// AuthHandler links the caller's local account to Flickr
type AuthHandler struct {
	auth *services.AuthService
	tmpl *template.Template
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *services.AuthService, tmpl *template.Template) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		tmpl: tmpl,
	}
}

// callbackURL is the absolute URL of the completion route for r's host
func callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + authCompletePath
}

// Begin handles GET /auth/
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	step, err := h.auth.Begin(r.Context(), userID, callbackURL(r))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to begin authorization")
		http.Error(w, "Failed to start Flickr authorization", http.StatusInternalServerError)
		return
	}

	switch step.Kind {
	case services.AuthRedirect:
		http.Redirect(w, r, step.RedirectURL, http.StatusFound)
	case services.AuthRelink:
		http.Redirect(w, r, authPath, http.StatusFound)
	default:
		render(w, h.tmpl, "auth_ok.html", step.Account)
	}
}

// Complete handles GET /auth/complete/, the OAuth callback
func (h *AuthHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	query := r.URL.Query()

	account, err := h.auth.Complete(r.Context(), userID, query.Get("oauth_token"), query.Get("oauth_verifier"))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to complete authorization")
		http.Error(w, "Failed to complete Flickr authorization", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("user_id", userID).
		Int64("account_id", account.ID).
		Msg("Authorization completed")

	http.Redirect(w, r, authPath, http.StatusFound)
}
