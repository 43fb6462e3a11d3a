package rag

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// answerLine is one rendered line of an answer.
type answerLine struct {
	Text   string
	Bullet bool
}

// segmenter splits model output into lines and sentences.
type segmenter struct {
	parser goldmark.Markdown
}

func newSegmenter() *segmenter {
	return &segmenter{parser: goldmark.New()}
}

// lines returns paragraphs, list items and headings of a markdown answer.
// Code blocks are dropped.
func (sg *segmenter) lines(answer string) []answerLine {
	src := []byte(answer)
	doc := sg.parser.Parser().Parse(text.NewReader(src))

	var out []answerLine
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			if line := blockText(n, src); line != "" {
				out = append(out, answerLine{Text: line, Bullet: inListItem(n)})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// sentences splits a line into sentences. A line prose cannot split is one
// sentence.
func (sg *segmenter) sentences(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	doc, err := prose.NewDocument(line,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
	if err != nil {
		return []string{line}
	}

	var out []string
	for _, s := range doc.Sentences() {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{line}
	}
	return out
}

func blockText(n ast.Node, src []byte) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if p := strings.TrimSpace(string(seg.Value(src))); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func inListItem(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.ListItem); ok {
			return true
		}
	}
	return false
}
