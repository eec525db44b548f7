// Package render turns chapter HTML into wrapped terminal lines.
package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

const (
	contentSelector = "#kol_content"
	blockSelector   = "p, h1, h2, h3, h4, h5, h6, li, blockquote"
	noiseSelector   = "script, style, noscript, iframe, ins, .code-block, .kln-ad"
	commentSelector = "#comments, .comments-area, .comment-respond"
	minWidth        = 20

	// lineBreak stands in for <br> until whitespace is collapsed
	lineBreak = "\uE000"
)

// Options controls what is kept from the chapter HTML
type Options struct {
	DisableComments bool
}

// Paragraph is one block of chapter text. Bold and Italic are set when the
// whole block carries that emphasis.
type Paragraph struct {
	Text    string
	Bold    bool
	Italic  bool
	Heading bool
}

// Line is one wrapped line of output
type Line struct {
	Text    string
	Bold    bool
	Italic  bool
	Heading bool
}

// Paragraphs extracts the readable paragraphs from chapter HTML
func Paragraphs(html string, opts Options) ([]Paragraph, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	root := doc.Find(contentSelector).First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	root.Find(noiseSelector).Remove()
	if opts.DisableComments {
		root.Find(commentSelector).Remove()
	}
	root.Find("br").ReplaceWithHtml(lineBreak)

	blocks := root.Find(blockSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		// Nested blocks are read through their outermost parent
		return s.ParentsFiltered(blockSelector).Length() == 0
	})
	if blocks.Length() == 0 {
		return plainParagraphs(root.Text()), nil
	}

	var out []Paragraph
	blocks.Each(func(_ int, s *goquery.Selection) {
		text := normalize(s.Text())
		if text == "" {
			return
		}
		heading := goquery.NodeName(s)[0] == 'h'
		out = append(out, Paragraph{
			Text:    text,
			Bold:    heading || covers(s, "strong, b", text),
			Italic:  covers(s, "em, i", text),
			Heading: heading,
		})
	})
	return out, nil
}

// covers reports whether the elements matching sel inside s hold all of text
func covers(s *goquery.Selection, sel, text string) bool {
	inner := s.Find(sel)
	if inner.Length() == 0 {
		return false
	}
	return normalize(inner.Text()) == text
}

func plainParagraphs(text string) []Paragraph {
	var out []Paragraph
	text = strings.ReplaceAll(text, lineBreak, "\n")
	for _, chunk := range strings.Split(text, "\n") {
		if chunk = normalize(chunk); chunk != "" {
			out = append(out, Paragraph{Text: chunk})
		}
	}
	return out
}

// normalize collapses whitespace, keeping explicit line breaks
func normalize(s string) string {
	var lines []string
	for _, line := range strings.Split(s, lineBreak) {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Wrap breaks paragraphs into lines no wider than width, with a blank line
// between paragraphs
func Wrap(paragraphs []Paragraph, width int) []Line {
	if width < minWidth {
		width = minWidth
	}

	var lines []Line
	for i, p := range paragraphs {
		if i > 0 {
			lines = append(lines, Line{})
		}
		wrapped := wrap.String(wordwrap.String(p.Text, width), width)
		for _, text := range strings.Split(wrapped, "\n") {
			lines = append(lines, Line{
				Text:    strings.TrimRight(text, " "),
				Bold:    p.Bold,
				Italic:  p.Italic,
				Heading: p.Heading,
			})
		}
	}
	return lines
}

// Chapter renders a chapter as a title line followed by its wrapped body
func Chapter(title, html string, width int, opts Options) ([]Line, error) {
	paragraphs, err := Paragraphs(html, opts)
	if err != nil {
		return nil, err
	}
	if width < minWidth {
		width = minWidth
	}
	header := Line{
		Text:    "━━━ " + Truncate(strings.Join(strings.Fields(title), " "), width-8) + " ━━━",
		Bold:    true,
		Heading: true,
	}
	lines := []Line{header, {}}
	return append(lines, Wrap(paragraphs, width)...), nil
}

// Truncate shortens s to width cells, ending with an ellipsis when cut
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
