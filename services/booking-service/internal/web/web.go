// Package web renders the studio booking page and serves its static assets.
package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Coaches interface {
	List(ctx context.Context, f storage.CoachFilter) ([]storage.CoachListing, error)
}

type SessionTypes interface {
	ListSessionTypes(ctx context.Context) ([]model.SessionType, error)
}

// Page is the data handed to index.html.
type Page struct {
	StudioName   string
	Coaches      []storage.CoachListing
	SessionTypes []model.SessionType
	Styles       []string
	Languages    []string
}

type Handler struct {
	coaches    Coaches
	sessions   SessionTypes
	logger     *slog.Logger
	studioName string
	tmpl       *template.Template
}

func NewHandler(coaches Coaches, sessions SessionTypes, logger *slog.Logger, studioName string) (*Handler, error) {
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"join": joinList,
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	if studioName == "" {
		studioName = "Fight Club"
	}
	return &Handler{coaches: coaches, sessions: sessions, logger: logger, studioName: studioName, tmpl: tmpl}, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /{$}", h.index)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	coaches, err := h.coaches.List(r.Context(), storage.CoachFilter{})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load coaches failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	sessions, err := h.sessions.ListSessionTypes(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load session types failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	page := Page{
		StudioName:   h.studioName,
		Coaches:      coaches,
		SessionTypes: sessions,
		Styles:       distinct(coaches, func(c storage.CoachListing) model.StringList { return c.Styles }),
		Languages:    distinct(coaches, func(c storage.CoachListing) model.StringList { return c.Languages }),
	}

	// Render into a buffer so a template error never leaves a half-written page.
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, page); err != nil {
		h.logger.ErrorContext(r.Context(), "render page failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// distinct collects the sorted set of list values across coaches.
func distinct(coaches []storage.CoachListing, pick func(storage.CoachListing) model.StringList) []string {
	seen := map[string]struct{}{}
	for _, c := range coaches {
		for _, v := range pick(c) {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func joinList(list model.StringList) string {
	return strings.Join(list, ", ")
}
