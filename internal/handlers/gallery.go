package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"
	"flickr-mirror/internal/repository"
	"flickr-mirror/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

type thumbData struct {
	Display *DisplayPhoto
	SetID   string
}

// Templates parses the embedded HTML pages. urls builds the links back to
// flickr.com.
func Templates(urls flickr.PageURLs) (*template.Template, error) {
	profile := func(a *models.RemoteAccount) string {
		if a == nil {
			return ""
		}
		return urls.Account(a.Username, a.NSID)
	}
	funcs := template.FuncMap{
		"photo":     displayPhoto,
		"plain":     plainText,
		"shorturl":  shortURL,
		"buddyicon": buddyIcon,
		"profile":   profile,
		"setpage": func(a *models.RemoteAccount, setID string) string {
			return urls.PhotoSet(profile(a), setID)
		},
		"thumb": func(d *DisplayPhoto, setID string) thumbData {
			return thumbData{Display: d, SetID: setID}
		},
	}
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// render executes a page into a buffer so template errors become a clean 500
func render(w http.ResponseWriter, tmpl *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// pageError answers an HTML route: 404 for unknown entities, 500 otherwise
func pageError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		http.NotFound(w, nil)
		return
	}
	log.Error().Err(err).Msg(msg)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// GalleryHandler serves the browsing pages
type GalleryHandler struct {
	gallery *services.GalleryService
	tmpl    *template.Template
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(gallery *services.GalleryService, tmpl *template.Template) *GalleryHandler {
	return &GalleryHandler{
		gallery: gallery,
		tmpl:    tmpl,
	}
}

// Index handles GET /
func (h *GalleryHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.gallery.Index(r.Context(), pageParam(r))
	if err != nil {
		pageError(w, err, "Failed to list photos")
		return
	}
	render(w, h.tmpl, "index.html", page)
}

// Set handles GET /set/{id}/
func (h *GalleryHandler) Set(w http.ResponseWriter, r *http.Request) {
	page, err := h.gallery.Set(r.Context(), chi.URLParam(r, "id"), pageParam(r))
	if err != nil {
		pageError(w, err, "Failed to list photoset")
		return
	}
	render(w, h.tmpl, "set.html", page)
}

// Photo handles GET /photo/{id}/; ?set= scopes the neighbours to an album
func (h *GalleryHandler) Photo(w http.ResponseWriter, r *http.Request) {
	page, err := h.gallery.Photo(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("set"))
	if err != nil {
		pageError(w, err, "Failed to load photo")
		return
	}
	render(w, h.tmpl, "photo.html", page)
}
