package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"pagerouter/internal/domain/content"
	"pagerouter/internal/logfields"
)

//go:embed layouts/*.tmpl
var layoutFS embed.FS

// DefaultLayout renders file backed pages whose front matter names no
// layout, or one that does not exist.
const DefaultLayout = "default"

const (
	notFoundTemplate = "404.tmpl"
	errorTemplate    = "500.tmpl"
)

type TemplateRenderer struct {
	tpl *template.Template
}

var _ Renderer = (*TemplateRenderer)(nil)

// NewTemplateRenderer parses the built in layouts.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	return NewTemplateRendererFS(layoutFS, "layouts/*.tmpl")
}

// NewTemplateRendererFS parses the layouts matching pattern in fsys. Each
// file defines the layout named after it without the .tmpl suffix.
func NewTemplateRendererFS(fsys fs.FS, pattern string) (*TemplateRenderer, error) {
	tpl, err := template.New("").Funcs(templateFuncs()).ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}
	return &TemplateRenderer{tpl: tpl}, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"date": func(t interface{}, layout string) string {
			switch v := t.(type) {
			case nil:
				return ""
			case string:
				return v
			case time.Time:
				if v.IsZero() {
					return ""
				}
				return v.Format(layout)
			case interface{ Format(string) string }:
				return v.Format(layout)
			default:
				return ""
			}
		},
		"nowYear": func() int {
			return time.Now().Year()
		},
		"postURL": func(basePath string, p content.Post) string {
			return basePath + "/" + p.Pathname
		},
		"join": strings.Join,
		"add":  func(a, b int) int { return a + b },
	}
}

// HasLayout reports whether a layout template exists.
func (r *TemplateRenderer) HasLayout(layout string) bool {
	return r.tpl.Lookup(layout+".tmpl") != nil
}

// Layouts lists every page layout, excluding the error pages.
func (r *TemplateRenderer) Layouts() []string {
	var out []string
	for _, t := range r.tpl.Templates() {
		name := t.Name()
		if !strings.HasSuffix(name, ".tmpl") || name == notFoundTemplate || name == errorTemplate || name == "base.tmpl" {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".tmpl"))
	}
	return out
}

func (r *TemplateRenderer) RenderPage(ctx context.Context, page PageView) ([]byte, error) {
	layout := page.Route.Layout
	if layout == "" && page.Document != nil {
		layout = page.Document.FrontMatter.Layout
	}
	if layout == "" {
		layout = DefaultLayout
	}
	if !r.HasLayout(layout) {
		slog.Warn("unknown layout, using default", logfields.Layout(layout), logfields.Pathname(page.Route.Pathname))
		layout = DefaultLayout
	}
	return r.exec(layout+".tmpl", page)
}

func (r *TemplateRenderer) RenderNotFound(ctx context.Context, page NotFoundView) ([]byte, error) {
	return r.exec(notFoundTemplate, page)
}

func (r *TemplateRenderer) RenderError(ctx context.Context, page ErrorView) ([]byte, error) {
	return r.exec(errorTemplate, page)
}

func (r *TemplateRenderer) exec(name string, data interface{}) ([]byte, error) {
	t := r.tpl.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CheckLayouts returns an error naming the first layout without a template.
func (r *TemplateRenderer) CheckLayouts(layouts ...string) error {
	for _, name := range layouts {
		if !r.HasLayout(name) {
			return fmt.Errorf("missing layout: %s", name)
		}
	}
	return nil
}
