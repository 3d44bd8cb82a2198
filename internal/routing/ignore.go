package routing

import (
	"fmt"
	"regexp"
	"strings"

	"pagerouter/internal/domain/config"
)

// Predicate reports whether a pathname should be left out of route
// listings. Ignored routes stay resolvable by exact pathname.
type Predicate func(pathname string) bool

func Exact(p string) Predicate {
	return func(pathname string) bool { return pathname == p }
}

func Prefix(p string) Predicate {
	return func(pathname string) bool { return strings.HasPrefix(pathname, p) }
}

func Pattern(re *regexp.Regexp) Predicate {
	return re.MatchString
}

// PredicatesFromConfig compiles the configured ignore rules.
func PredicatesFromConfig(rules []config.IgnoreRule) ([]Predicate, error) {
	out := make([]Predicate, 0, len(rules))
	for i, r := range rules {
		switch {
		case r.Exact != "":
			out = append(out, Exact(r.Exact))
		case r.Prefix != "":
			out = append(out, Prefix(r.Prefix))
		case r.Pattern != "":
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("ignore rule %d: %w", i, err)
			}
			out = append(out, Pattern(re))
		default:
			return nil, fmt.Errorf("ignore rule %d: empty", i)
		}
	}
	return out, nil
}
