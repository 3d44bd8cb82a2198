package publish

import (
	"encoding/json"

	"pagerouter/internal/app"
)

type manifest struct {
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	Description     string `json:"description,omitempty"`
	StartURL        string `json:"start_url"`
	Display         string `json:"display"`
	ThemeColor      string `json:"theme_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
}

// Manifest renders manifest.webmanifest. Names default to the site title.
func Manifest(s *app.Site) ([]byte, error) {
	cfg := s.Config().Site
	m := manifest{
		Name:            cfg.Manifest.Name,
		ShortName:       cfg.Manifest.ShortName,
		Description:     cfg.Description,
		StartURL:        cfg.BasePath + "/",
		Display:         "standalone",
		ThemeColor:      cfg.Manifest.ThemeColor,
		BackgroundColor: cfg.Manifest.BackgroundColor,
	}
	if m.Name == "" {
		m.Name = cfg.Title
	}
	if m.ShortName == "" {
		m.ShortName = m.Name
	}
	return json.MarshalIndent(m, "", "  ")
}
