package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names shared across packages.
const (
	KeyPathname   = "pathname"
	KeyFilename   = "filename"
	KeyLocale     = "locale"
	KeyRouteKind  = "route_kind"
	KeyLayout     = "layout"
	KeyCache      = "cache"
	KeyRoutes     = "routes"
	KeyBuildID    = "build_id"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyError      = "error"
)

func Pathname(p string) slog.Attr  { return slog.String(KeyPathname, "/"+p) }
func Filename(f string) slog.Attr  { return slog.String(KeyFilename, f) }
func Locale(l string) slog.Attr    { return slog.String(KeyLocale, l) }
func RouteKind(k string) slog.Attr { return slog.String(KeyRouteKind, k) }
func Layout(l string) slog.Attr    { return slog.String(KeyLayout, l) }
func Cache(name string) slog.Attr  { return slog.String(KeyCache, name) }
func Routes(n int) slog.Attr       { return slog.Int(KeyRoutes, n) }
func BuildID(id string) slog.Attr  { return slog.String(KeyBuildID, id) }
func Path(p string) slog.Attr      { return slog.String(KeyPath, p) }

func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
