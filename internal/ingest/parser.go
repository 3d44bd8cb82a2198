package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"pagerouter/internal/domain/content"
)

var (
	ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")
	ErrInvalidFrontMatter      = errors.New("invalid front matter")
)

// SplitFrontMatter separates a leading `---` delimited YAML block from the
// body. had is false when the source has no front matter at all.
func SplitFrontMatter(raw []byte) (yamlPart, body []byte, had bool, err error) {
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))

	const (
		sep      = "---"
		sepLine  = sep + "\n"
		closeMid = "\n" + sep + "\n"
	)

	if !bytes.HasPrefix(norm, []byte(sepLine)) {
		return nil, norm, false, nil
	}
	rest := norm[len(sepLine):]

	// "---\n---\n" empty block
	if bytes.HasPrefix(rest, []byte(sepLine)) {
		return nil, rest[len(sepLine):], true, nil
	}
	if bytes.Equal(bytes.TrimSpace(rest), []byte(sep)) {
		return nil, nil, true, nil
	}

	if parts := bytes.SplitN(rest, []byte(closeMid), 2); len(parts) == 2 {
		return parts[0], parts[1], true, nil
	}
	// closing delimiter at EOF, no body
	if bytes.HasSuffix(rest, []byte("\n"+sep)) {
		return rest[:len(rest)-len("\n"+sep)], nil, true, nil
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// ParseFrontMatter parses the front matter block and returns it with the
// remaining body. A source without front matter yields an empty FrontMatter.
func ParseFrontMatter(raw []byte) (content.FrontMatter, []byte, error) {
	yamlPart, body, _, err := SplitFrontMatter(raw)
	if err != nil {
		return content.FrontMatter{}, nil, err
	}

	fm := content.FrontMatter{Fields: map[string]any{}}
	yamlPart = bytes.TrimSpace(yamlPart)
	if len(yamlPart) == 0 {
		return fm, body, nil
	}

	if err := yaml.Unmarshal(yamlPart, &fm.Fields); err != nil {
		return content.FrontMatter{}, nil, fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
	}
	if fm.Fields == nil {
		fm.Fields = map[string]any{}
	}
	fields := fm.Fields
	if err := yaml.Unmarshal(yamlPart, &fm); err != nil {
		return content.FrontMatter{}, nil, fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
	}
	fm.Fields = fields
	return fm, body, nil
}

func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		time.DateOnly,
		"2006-01-02 15:04",
		time.DateTime,
		"2006-01-02T15:04:05.000Z",
	} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
