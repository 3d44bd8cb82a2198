package serve

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pagerouter/internal/app"
	domainerr "pagerouter/internal/domain/errors"
	"pagerouter/internal/logfields"
	"pagerouter/internal/publish"
)

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	st := s.site.Load()
	pathname := st.Pathname(strings.Split(chi.URLParam(r, "*"), "/"))

	page, err := st.Page(r.Context(), pathname)
	if err != nil {
		s.serverError(w, r, st, err)
		return
	}
	if !page.Found() {
		s.notFound(w, r, st)
		return
	}
	html, err := st.RenderPage(r.Context(), page)
	if err != nil {
		s.serverError(w, r, st, err)
		return
	}
	writeHTML(w, http.StatusOK, html)
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	st := s.site.Load()
	out, err := publish.Sitemap(st)
	if err != nil {
		s.serverError(w, r, st, err)
		return
	}
	writeBody(w, "application/xml; charset=utf-8", out)
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	writeBody(w, "text/plain; charset=utf-8", publish.Robots(s.site.Load()))
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	st := s.site.Load()
	out, err := publish.Manifest(st)
	if err != nil {
		s.serverError(w, r, st, err)
		return
	}
	writeBody(w, "application/manifest+json", out)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	st := s.site.Load()
	out, err := publish.Feed(r.Context(), st, chi.URLParam(r, "file"))
	if errors.Is(err, domainerr.ErrNotFound) {
		s.notFound(w, r, st)
		return
	}
	if err != nil {
		s.serverError(w, r, st, err)
		return
	}
	writeBody(w, "application/rss+xml; charset=utf-8", out)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.notFound(w, r, s.site.Load())
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, st *app.Site) {
	html, err := st.RenderNotFound(r.Context(), r.URL.Path)
	if err != nil {
		slog.Error("render 404", logfields.Path(r.URL.Path), logfields.Error(err))
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	writeHTML(w, http.StatusNotFound, html)
}

// serverError never exposes err or partial output to the client.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, st *app.Site, err error) {
	reqID := middleware.GetReqID(r.Context())
	slog.Error("page failed",
		logfields.Path(r.URL.Path),
		slog.String("request_id", reqID),
		logfields.Error(err))

	html, rerr := st.RenderError(r.Context(), reqID)
	if rerr != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusInternalServerError, html)
}

func writeHTML(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeBody(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}
