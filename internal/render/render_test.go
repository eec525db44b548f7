package render

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestParagraphs(t *testing.T) {
	html := `<div id="kol_content">
<p>First   paragraph
   spans lines.</p>
<script>alert("x")</script>
<ins class="adsbygoogle"></ins>
<p><strong>All bold</strong></p>
<p>Mixed <em>emphasis</em> here</p>
<p><em>Whispered</em></p>
<p>   </p>
<h3>Part Two</h3>
<p>line one<br>line two</p>
</div>`

	paragraphs, err := Paragraphs(html, Options{})
	if err != nil {
		t.Fatalf("Paragraphs: %v", err)
	}

	want := []Paragraph{
		{Text: "First paragraph spans lines."},
		{Text: "All bold", Bold: true},
		{Text: "Mixed emphasis here"},
		{Text: "Whispered", Italic: true},
		{Text: "Part Two", Bold: true, Heading: true},
		{Text: "line one\nline two"},
	}
	if len(paragraphs) != len(want) {
		t.Fatalf("got %d paragraphs: %+v", len(paragraphs), paragraphs)
	}
	for i := range want {
		if paragraphs[i] != want[i] {
			t.Errorf("paragraph %d = %+v, want %+v", i, paragraphs[i], want[i])
		}
	}
}

func TestParagraphsDropsComments(t *testing.T) {
	html := `<body><p>story</p><div id="comments"><p>nice chapter!</p></div></body>`

	kept, err := Paragraphs(html, Options{})
	if err != nil {
		t.Fatalf("Paragraphs: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected comments kept by default, got %+v", kept)
	}

	dropped, err := Paragraphs(html, Options{DisableComments: true})
	if err != nil {
		t.Fatalf("Paragraphs: %v", err)
	}
	if len(dropped) != 1 || dropped[0].Text != "story" {
		t.Fatalf("expected only the story, got %+v", dropped)
	}
}

func TestParagraphsPlainText(t *testing.T) {
	paragraphs, err := Paragraphs("one\n\ntwo  words", Options{})
	if err != nil {
		t.Fatalf("Paragraphs: %v", err)
	}
	if len(paragraphs) != 2 || paragraphs[1].Text != "two words" {
		t.Fatalf("unexpected paragraphs %+v", paragraphs)
	}
}

func TestWrap(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 30))
	lines := Wrap([]Paragraph{{Text: text, Italic: true}, {Text: "end"}}, 24)

	if len(lines) < 3 {
		t.Fatalf("expected several lines, got %d", len(lines))
	}
	blank := -1
	for i, l := range lines {
		if runewidth.StringWidth(l.Text) > 24 {
			t.Errorf("line %d too wide: %q", i, l.Text)
		}
		if l.Text == "" {
			blank = i
		}
	}
	if blank < 0 || blank != len(lines)-2 {
		t.Fatalf("expected a blank separator before the last paragraph, lines: %+v", lines)
	}
	if !lines[0].Italic || lines[len(lines)-1].Italic {
		t.Errorf("emphasis not carried per paragraph")
	}
}

func TestWrapBreaksLongWords(t *testing.T) {
	lines := Wrap([]Paragraph{{Text: strings.Repeat("x", 50)}}, 20)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(lines), lines)
	}
}

func TestChapter(t *testing.T) {
	lines, err := Chapter("The Hunt", "<p>hello</p>", 40, Options{})
	if err != nil {
		t.Fatalf("Chapter: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected header, blank and body, got %+v", lines)
	}
	if !strings.Contains(lines[0].Text, "The Hunt") || !lines[0].Heading {
		t.Errorf("unexpected header %+v", lines[0])
	}
	if lines[2].Text != "hello" {
		t.Errorf("body = %q", lines[2].Text)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate kept = %q", got)
	}
	got := Truncate("a rather long chapter title", 10)
	if runewidth.StringWidth(got) > 10 || !strings.HasSuffix(got, "…") {
		t.Errorf("Truncate = %q", got)
	}
	if Truncate("x", 0) != "" {
		t.Error("zero width should be empty")
	}
}
