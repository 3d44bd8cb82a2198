package serve

import (
	"net/http"
	"strings"

	"pagerouter/internal/domain/config"
)

// matchRedirect applies one redirect rule to p. A source ending in /* is
// a prefix match; the rest of the path replaces a trailing /* in the
// destination.
func matchRedirect(rule config.Redirect, p string) (string, bool) {
	if prefix, ok := strings.CutSuffix(rule.Source, "/*"); ok {
		if p != prefix && !strings.HasPrefix(p, prefix+"/") {
			return "", false
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(p, prefix), "/")
		if dest, ok := strings.CutSuffix(rule.Destination, "/*"); ok {
			if rest == "" {
				return dest, true
			}
			return dest + "/" + rest, true
		}
		return rule.Destination, true
	}
	if strings.TrimRight(p, "/") == strings.TrimRight(rule.Source, "/") {
		return rule.Destination, true
	}
	return "", false
}

// redirects answers external redirects with 307 and rewrites the request
// path for internal ones before any routing happens.
func (s *Server) redirects(next http.Handler) http.Handler {
	rules := s.cfg.Redirects
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, rule := range rules.External {
			if dest, ok := matchRedirect(rule, r.URL.Path); ok {
				http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
				return
			}
		}
		for _, rule := range rules.Internal {
			if dest, ok := matchRedirect(rule, r.URL.Path); ok {
				r2 := r.Clone(r.Context())
				r2.URL.Path = dest
				r2.URL.RawPath = ""
				next.ServeHTTP(w, r2)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
