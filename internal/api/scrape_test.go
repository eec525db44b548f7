package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"
)

const seriesPage = `<html><body><article>
<div class="sertobig"><div>
  <div class="sertothumb"><img src="https://kolbook.xyz/cover.jpg"></div>
  <div class="sertoinfo"><h1> Solo Leveling </h1></div>
</div></div>
<div class="bixbox bxcl epcheck">
  <div class="ts-chl-collapsible">المجلد 2</div>
  <div><div><ul>
    <li data-id="104"><a href="https://kolbook.xyz/c-104/"><div class="epl-num">المجلد 2 الفصل 4</div><div class="epl-title">Four</div></a></li>
    <li data-id="103"><a href="https://kolbook.xyz/c-103/"><div class="epl-num">المجلد 2 الفصل 3</div><div class="epl-title">Three</div></a></li>
  </ul></div></div>
  <div class="ts-chl-collapsible">المجلد 1</div>
  <div><div><ul>
    <li data-id="999"><a href="https://kolbook.xyz/stale/"><div class="epl-num">الفصل 0</div></a></li>
  </ul></div></div>
  <div><div><ul>
    <li data-id="102"><a href="https://kolbook.xyz/c-102/"><div class="epl-num">المجلد 1 الفصل 2</div><div class="epl-title">Two</div></a></li>
    <li data-id="101"><a><div class="epl-num">الفصل</div></a></li>
  </ul></div></div>
</div>
</article></body></html>`

func TestParseChapterList(t *testing.T) {
	chapters, err := ParseChapterList(strings.NewReader(seriesPage))
	if err != nil {
		t.Fatalf("ParseChapterList: %v", err)
	}

	wantIDs := []int{101, 102, 103, 104}
	if len(chapters) != len(wantIDs) {
		t.Fatalf("got %d chapters: %+v", len(chapters), chapters)
	}
	for i, id := range wantIDs {
		if chapters[i].ID != id {
			t.Fatalf("chapter %d id = %d, want %d", i, chapters[i].ID, id)
		}
	}

	if chapters[0].Link != "404" || chapters[0].Title != "unknown" {
		t.Errorf("defaults not applied: %+v", chapters[0])
	}
	if !math.IsNaN(chapters[0].ChapterIndex) {
		t.Errorf("empty label index = %v, want NaN", chapters[0].ChapterIndex)
	}
	if chapters[1].ChapterIndex != 2 || chapters[3].ChapterIndex != 4 {
		t.Errorf("indexes = %v, %v", chapters[1].ChapterIndex, chapters[3].ChapterIndex)
	}
	if chapters[3].Title != "Four" || chapters[3].Link != "https://kolbook.xyz/c-104/" {
		t.Errorf("unexpected chapter %+v", chapters[3])
	}
}

func TestParseChapterListRejectsBadID(t *testing.T) {
	page := `<div class="bixbox bxcl epcheck"><div class="ts-chl-collapsible">x</div>
<div><div><ul><li data-id="abc"><a href="/a">a</a></li></ul></div></div></div>`

	_, err := ParseChapterList(strings.NewReader(page))
	if !errors.Is(err, ErrListUnavailable) {
		t.Fatalf("expected ErrListUnavailable, got %v", err)
	}
}

func TestParseChapterListWithoutSections(t *testing.T) {
	pages := []string{
		`<html><body><h1>Just a moment...</h1></body></html>`,
		`<div class="bixbox bxcl epcheck"><div class="ts-chl-collapsible">Vol 1</div><div><div><ul></ul></div></div></div>`,
	}
	for _, page := range pages {
		chapters, err := ParseChapterList(strings.NewReader(page))
		if !errors.Is(err, ErrListUnavailable) {
			t.Fatalf("expected ErrListUnavailable, got %v (%d chapters)", err, len(chapters))
		}
	}
}

func TestChapterListChallengePage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Just a moment...</h1></body></html>`)
	}))

	_, err := c.ChapterList(context.Background(), "solo-leveling")
	if !errors.Is(err, ErrListUnavailable) {
		t.Fatalf("expected ErrListUnavailable, got %v", err)
	}
}

func TestChapterListFetchFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.ChapterList(context.Background(), "solo-leveling")
	if !errors.Is(err, ErrListUnavailable) {
		t.Fatalf("expected ErrListUnavailable, got %v", err)
	}
}

func TestChapterListFetch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/series/solo-leveling" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, seriesPage)
	}))

	chapters, err := c.ChapterList(context.Background(), "solo-leveling")
	if err != nil {
		t.Fatalf("ChapterList: %v", err)
	}
	if len(chapters) != 4 {
		t.Fatalf("got %d chapters", len(chapters))
	}
}

func TestChapterNumber(t *testing.T) {
	tests := []struct {
		label, novel string
		want         float64
	}{
		{"Solo Leveling 12 - The Hunt", "Solo Leveling", 12},
		{"Solo Leveling 12.5", "Solo Leveling", 12.5},
		{"  7 extra", "", 7},
		{"Solo Leveling prologue", "Solo Leveling", math.NaN()},
		{"", "Solo Leveling", math.NaN()},
	}
	for _, tt := range tests {
		got := ChapterNumber(tt.label, tt.novel)
		if math.IsNaN(tt.want) {
			if !math.IsNaN(got) {
				t.Errorf("ChapterNumber(%q) = %v, want NaN", tt.label, got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ChapterNumber(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

const chapterHTML = `<html><body>
<div class="ts-breadcrumb bixbox"><div>
  <span><a href="https://kolbook.xyz/">Home</a></span>
  <span><a href="https://kolbook.xyz/solo-leveling-12/">Solo Leveling 12 - The Hunt</a></span>
  <span><a href="https://kolbook.xyz/series/solo-leveling/">Solo Leveling</a></span>
</div></div>
<article id="post-512">
  <div class="cat-series">The Hunt</div>
  <div class="epwrapper"><div id="kol_content"><p>first</p><p>second</p></div></div>
</article>
</body></html>`

func TestParseChapterPage(t *testing.T) {
	page, err := ParseChapterPage(strings.NewReader(chapterHTML))
	if err != nil {
		t.Fatalf("ParseChapterPage: %v", err)
	}
	if page.ID != 512 {
		t.Errorf("id = %d", page.ID)
	}
	if page.NovelName != "Solo Leveling" || page.ChapterNumber != 12 {
		t.Errorf("novel %q number %v", page.NovelName, page.ChapterNumber)
	}
	if page.Title != "The Hunt" {
		t.Errorf("title = %q", page.Title)
	}
	if !strings.Contains(page.Content, "<p>second</p>") {
		t.Errorf("content = %q", page.Content)
	}
	if SlugFromLink(page.NovelLink) != "solo-leveling" {
		t.Errorf("slug of %q = %q", page.NovelLink, SlugFromLink(page.NovelLink))
	}
}

func TestParseChapterPageMissingAnchor(t *testing.T) {
	tests := map[string]string{
		"no article":    `<html><body><p>x</p></body></html>`,
		"bad id":        `<article id="post-x"></article>`,
		"no breadcrumb": `<article id="post-3"></article>`,
	}
	for name, html := range tests {
		if _, err := ParseChapterPage(strings.NewReader(html)); !errors.Is(err, ErrAnchorMissing) {
			t.Errorf("%s: expected ErrAnchorMissing, got %v", name, err)
		}
	}
}

func TestParseNovelPage(t *testing.T) {
	page, err := ParseNovelPage(strings.NewReader(seriesPage))
	if err != nil {
		t.Fatalf("ParseNovelPage: %v", err)
	}
	if page.Name != "Solo Leveling" || page.Cover != "https://kolbook.xyz/cover.jpg" {
		t.Fatalf("unexpected header %q %q", page.Name, page.Cover)
	}
	if len(page.Chapters) != 4 {
		t.Fatalf("got %d chapters", len(page.Chapters))
	}
}

func TestParseNovelPageFlatList(t *testing.T) {
	html := `<article><div class="sertobig"><div><div class="sertoinfo"><h1>Short</h1></div></div></div>
<div class="eplister"><ul>
  <li data-id="2"><a href="/c2">Chapter 2</a></li>
  <li data-id="1"><a href="/c1">Chapter 1</a></li>
</ul></div></article>`

	page, err := ParseNovelPage(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParseNovelPage: %v", err)
	}
	if len(page.Chapters) != 2 || page.Chapters[0].ID != 1 || page.Chapters[0].Title != "Chapter 1" {
		t.Fatalf("unexpected chapters %+v", page.Chapters)
	}
}

func TestFetchImage(t *testing.T) {
	var c *Client
	c = newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.jpg" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Referer"); got != c.BaseURL()+"/" {
			http.Error(w, "bad referer "+got, http.StatusForbidden)
			return
		}
		w.Write([]byte("jpeg"))
	}))

	data, err := c.FetchImage(context.Background(), c.BaseURL()+"/cover.jpg")
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("FetchImage = %q, %v", data, err)
	}
	if _, err := c.FetchImage(context.Background(), c.BaseURL()+"/missing.jpg"); err == nil {
		t.Fatal("expected an error for a missing image")
	}
}
