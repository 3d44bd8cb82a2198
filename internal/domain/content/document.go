package content

import (
	"html/template"
	"strings"
	"time"
)

// FrontMatter holds the author supplied metadata block of a source file.
// Fields keeps every key, recognized or not; the typed fields mirror the
// recognized ones.
type FrontMatter struct {
	Title       string `yaml:"title" json:"title"`
	Layout      string `yaml:"layout" json:"layout"`
	Authors     string `yaml:"authors" json:"authors"`
	Author      string `yaml:"author" json:"author"`
	Date        string `yaml:"date" json:"date"`
	LastUpdated string `yaml:"lastUpdated" json:"lastUpdated"`
	HeroImage   string `yaml:"heroImage" json:"heroImage"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`

	Fields map[string]any `yaml:"-" json:"fields"`
}

// AuthorList splits the comma separated authors field. The singular
// author key is used by older blog posts.
func (f FrontMatter) AuthorList() []string {
	raw := f.Authors
	if strings.TrimSpace(raw) == "" {
		raw = f.Author
	}
	var out []string
	for _, a := range strings.Split(raw, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (f FrontMatter) Get(key string) (any, bool) {
	v, ok := f.Fields[key]
	return v, ok
}

type Heading struct {
	Depth int    `json:"depth"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

type ReadingTime struct {
	Text    string  `json:"text"`
	Minutes float64 `json:"minutes"`
	Words   int     `json:"words"`
}

// Document is the compiled form of one source file. It is never mutated
// after the compiler returns it.
type Document struct {
	Filename    string        `json:"filename"`
	FrontMatter FrontMatter   `json:"frontmatter"`
	Headings    []Heading     `json:"headings"`
	ReadingTime ReadingTime   `json:"readingTime"`
	HTML        template.HTML `json:"html"`
}

// Source is the raw text of a resolved route. The zero value means the
// pathname has no backing file.
type Source struct {
	Text     string
	Filename string
}

func (s Source) Found() bool {
	return s.Text != "" && s.Filename != ""
}

// Post is the listing view of a blog document used for feeds.
type Post struct {
	Pathname string
	Title    string
	Category string
	Authors  []string
	Date     time.Time
	Excerpt  string
}
