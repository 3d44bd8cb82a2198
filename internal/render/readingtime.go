package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/yuin/goldmark/ast"

	"pagerouter/internal/domain/content"
)

// EstimateReadingTime converts a word count to minutes at wpm words per
// minute. The text form rounds up after trimming to two decimals.
func EstimateReadingTime(words, wpm int) content.ReadingTime {
	if wpm <= 0 {
		wpm = 200
	}
	minutes := float64(words) / float64(wpm)
	rounded := math.Round(minutes*100) / 100
	return content.ReadingTime{
		Text:    fmt.Sprintf("%d min read", int(math.Ceil(rounded))),
		Minutes: minutes,
		Words:   words,
	}
}

// countWords counts whitespace separated words in prose and code. Raw HTML
// is not counted.
func countWords(doc ast.Node, src []byte) int {
	words := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			words += len(strings.Fields(string(t.Segment.Value(src))))
		case *ast.String:
			words += len(strings.Fields(string(t.Value)))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				words += len(strings.Fields(string(seg.Value(src))))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return words
}
