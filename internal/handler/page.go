// Package handler contains the HTTP request handlers for the wishlist.
//
// Handlers are glue: they parse requests, call the session/service layer,
// and write responses. No business logic lives here.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/wishlist/internal/service"
	"github.com/sakif/wishlist/internal/session"
	"github.com/sakif/wishlist/internal/view"
)

// PageHandler serves the server-rendered HTML pages. Templates are parsed
// once at startup and reused on every request.
type PageHandler struct {
	templates *template.Template
	session   *session.Session
	logger    *slog.Logger
}

// NewPageHandler creates a PageHandler and parses the HTML templates.
func NewPageHandler(templateDir string, sess *session.Session, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(templateDir, "index.html"),
		filepath.Join(templateDir, "login.html"),
	)
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		templates: tmpl,
		session:   sess,
		logger:    logger,
	}, nil
}

// indexData is what the wishlist page template receives.
type indexData struct {
	Rows   []view.Row
	Search string
	Error  string
}

// HandleIndex serves the wishlist page for the session's current
// sort/search state.
//
// A failed fetch still renders the page: the previously fetched rows stay
// on screen with the fetch error banner above them, instead of replacing
// the whole view with an error page.
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	// The page takes the same ordered sort/search parameters as the list
	// API (the search form submits here); bad ones are ignored rather
	// than failing the whole page.
	if criteria, search, hasSearch, err := parseListParams(r.URL.RawQuery); err == nil {
		syncSession(h.session, criteria, search, hasSearch)
	}

	data := indexData{Search: h.session.Search()}

	rows, err := h.session.Rows(r.Context())
	if err != nil {
		h.logger.Error("fetching wishes for page render failed", slog.String("error", err.Error()))
		data.Error = service.MsgFetchFailed
		rows = h.session.LastRows()
	}
	data.Rows = view.Rows(rows)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error("rendering wishlist page failed", slog.String("error", err.Error()))
	}
}

// HandleLoginPage serves the access code form.
func (h *PageHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "login.html", nil); err != nil {
		h.logger.Error("rendering login page failed", slog.String("error", err.Error()))
	}
}
