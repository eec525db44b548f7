package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

const (
	sectionTitleSelector = ".ts-chl-collapsible"
	sectionListSelector  = "div.bixbox.bxcl.epcheck > div > div > ul"
	novelTitleSelector   = "article > div.sertobig > div > div.sertoinfo > h1"
	novelCoverSelector   = "article > div.sertobig > div > div.sertothumb > img"
	novelChapterSelector = ".eplister > ul > li"
	breadcrumbSelector   = "div.ts-breadcrumb.bixbox > div"
	chapterWord          = "الفصل"
)

// SeriesURL returns the chapter listing page of a novel
func (c *Client) SeriesURL(slug string) string {
	return c.baseURL + "/series/" + url.PathEscape(slug)
}

// fetchDocument downloads and parses an HTML page
func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(pageURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == 404 {
		return nil, fmt.Errorf("%s: %w", pageURL, ErrNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: HTTP %d", pageURL, resp.StatusCode())
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
}

// FetchImage downloads an image, such as a novel cover
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "image/*").
		SetHeader("Referer", c.baseURL+"/").
		Get(imageURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: HTTP %d", imageURL, resp.StatusCode())
	}
	return resp.Body(), nil
}

// ChapterList downloads the listing page of a novel and returns its chapters
// in reading order
func (c *Client) ChapterList(ctx context.Context, slug string) ([]models.ChapterDescriptor, error) {
	c.log.Debug("fetch chapter list", "slug", slug)
	doc, err := c.fetchDocument(ctx, c.SeriesURL(slug))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListUnavailable, err)
	}
	return listing(doc)
}

// ParseChapterList reads a listing page and returns its chapters in reading
// order
func ParseChapterList(r io.Reader) ([]models.ChapterDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListUnavailable, err)
	}
	return listing(doc)
}

// listing is chapterList for a page that must list chapters. Challenge and
// maintenance pages have none.
func listing(doc *goquery.Document) ([]models.ChapterDescriptor, error) {
	chapters, err := chapterList(doc)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("%w: no chapters in listing", ErrListUnavailable)
	}
	return chapters, nil
}

type section struct {
	title string
	list  *goquery.Selection
}

// sections pairs every section title with the last list that appears before
// the next title. Lists ahead of the first title belong to it.
func sections(doc *goquery.Document) []section {
	var (
		titles []int
		lists  []int
		nodes  []*goquery.Selection
	)
	// A union selector yields matches in document order.
	doc.Find(sectionTitleSelector+", "+sectionListSelector).Each(func(i int, s *goquery.Selection) {
		nodes = append(nodes, s)
		if s.Is(sectionTitleSelector) {
			titles = append(titles, i)
		} else {
			lists = append(lists, i)
		}
	})

	var out []section
	next := 0
	for i, pos := range titles {
		limit := len(nodes)
		if i+1 < len(titles) {
			limit = titles[i+1]
		}
		last := -1
		for next < len(lists) && lists[next] < limit {
			last = lists[next]
			next++
		}
		if last >= 0 {
			out = append(out, section{
				title: strings.TrimSpace(nodes[pos].Text()),
				list:  nodes[last],
			})
		}
	}
	return out
}

func chapterList(doc *goquery.Document) ([]models.ChapterDescriptor, error) {
	var (
		chapters []models.ChapterDescriptor
		bad      error
	)
	for _, sec := range sections(doc) {
		sec.list.Children().EachWithBreak(func(_ int, item *goquery.Selection) bool {
			rawID, _ := item.Attr("data-id")
			id, err := strconv.Atoi(strings.TrimSpace(rawID))
			if err != nil {
				bad = fmt.Errorf("%w: entry without a numeric data-id %q", ErrListUnavailable, rawID)
				return false
			}

			link, ok := item.Find("a").First().Attr("href")
			if !ok {
				link = "404"
			}
			title := "unknown"
			if t := item.Find(".epl-title").First(); t.Length() > 0 {
				title = strings.TrimSpace(t.Text())
			}

			chapters = append(chapters, models.ChapterDescriptor{
				ID:           id,
				Title:        title,
				Link:         link,
				ChapterIndex: sectionIndex(item.Find(".epl-num").First().Text(), sec.title),
			})
			return true
		})
		if bad != nil {
			return nil, bad
		}
	}

	// The site lists newest first
	for i, j := 0, len(chapters)-1; i < j; i, j = i+1, j-1 {
		chapters[i], chapters[j] = chapters[j], chapters[i]
	}
	return chapters, nil
}

// sectionIndex strips the section title and the chapter word from a label
// and parses what is left
func sectionIndex(raw, sectionTitle string) float64 {
	if sectionTitle != "" {
		raw = strings.Replace(raw, sectionTitle, "", 1)
	}
	raw = strings.Replace(raw, chapterWord, "", 1)
	return parseNumber(raw)
}

// ChapterNumber extracts the chapter number from a breadcrumb label such as
// "Novel Name 12 - Title"
func ChapterNumber(label, novelName string) float64 {
	if novelName != "" {
		label = strings.Replace(label, novelName, "", 1)
	}
	token, _, _ := strings.Cut(strings.TrimSpace(label), " ")
	return parseNumber(token)
}

// parseNumber returns NaN for anything that is not a plain number
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

// ChapterPage downloads a chapter page
func (c *Client) ChapterPage(ctx context.Context, pageURL string) (models.ChapterPage, error) {
	c.log.Debug("fetch chapter page", "url", pageURL)
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return models.ChapterPage{}, err
	}
	page, err := chapterPage(doc)
	if err != nil {
		return page, err
	}
	page.Link = pageURL
	return page, nil
}

// ParseChapterPage reads a chapter page
func ParseChapterPage(r io.Reader) (models.ChapterPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.ChapterPage{}, err
	}
	return chapterPage(doc)
}

func chapterPage(doc *goquery.Document) (models.ChapterPage, error) {
	var page models.ChapterPage

	article := doc.Find("article").First()
	if article.Length() == 0 {
		return page, fmt.Errorf("%w: no article", ErrAnchorMissing)
	}
	articleID, _ := article.Attr("id")
	_, rawID, _ := strings.Cut(articleID, "-")
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return page, fmt.Errorf("%w: article id %q", ErrAnchorMissing, articleID)
	}

	crumbs := doc.Find(breadcrumbSelector).First()
	if crumbs.Length() == 0 {
		return page, fmt.Errorf("%w: no breadcrumb", ErrAnchorMissing)
	}
	chapterLink := crumbs.Find("span:nth-child(2) a").First()
	novelLink := crumbs.Find("span:nth-child(3) a").First()

	page.ID = id
	page.ChapterLabel = strings.TrimSpace(chapterLink.Text())
	page.NovelName = strings.TrimSpace(novelLink.Text())
	page.NovelLink, _ = novelLink.Attr("href")
	page.ChapterNumber = ChapterNumber(page.ChapterLabel, page.NovelName)
	page.Title = strings.TrimSpace(doc.Find(".cat-series").First().Text())
	if page.Title == "" {
		page.Title = page.ChapterLabel
	}
	page.Content, _ = doc.Find("#kol_content").First().Html()
	if link, ok := chapterLink.Attr("href"); ok {
		page.Link = link
	}
	return page, nil
}

// SlugFromLink returns the last path element of a novel link
func SlugFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	slug := path.Base(strings.TrimRight(u.Path, "/"))
	if slug == "." || slug == "/" {
		return ""
	}
	return slug
}

// NovelPage downloads the page of a novel: its header and its chapters
func (c *Client) NovelPage(ctx context.Context, slug string) (models.NovelPage, error) {
	c.log.Debug("fetch novel page", "slug", slug)
	link := c.SeriesURL(slug)
	doc, err := c.fetchDocument(ctx, link)
	if err != nil {
		return models.NovelPage{}, err
	}
	page, err := novelPage(doc)
	if err != nil {
		return page, err
	}
	page.Slug = slug
	page.Link = link
	return page, nil
}

// ParseNovelPage reads the page of a novel
func ParseNovelPage(r io.Reader) (models.NovelPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.NovelPage{}, err
	}
	return novelPage(doc)
}

func novelPage(doc *goquery.Document) (models.NovelPage, error) {
	var page models.NovelPage

	page.Name = strings.TrimSpace(doc.Find(novelTitleSelector).First().Text())
	if page.Name == "" {
		return page, fmt.Errorf("%w: no novel title", ErrAnchorMissing)
	}
	page.Cover, _ = doc.Find(novelCoverSelector).First().Attr("src")

	chapters, err := chapterList(doc)
	if err != nil {
		return page, err
	}
	if len(chapters) == 0 {
		chapters = flatChapterList(doc)
	}
	page.Chapters = chapters
	return page, nil
}

// flatChapterList reads an unsectioned listing, newest first on the page
func flatChapterList(doc *goquery.Document) []models.ChapterDescriptor {
	var chapters []models.ChapterDescriptor
	doc.Find(novelChapterSelector).Each(func(_ int, item *goquery.Selection) {
		rawID, _ := item.Attr("data-id")
		id, err := strconv.Atoi(strings.TrimSpace(rawID))
		if err != nil {
			return
		}
		link, ok := item.Find("a").First().Attr("href")
		if !ok {
			link = "404"
		}
		title := strings.TrimSpace(item.Text())
		if title == "" {
			title = "unknown"
		}
		chapters = append(chapters, models.ChapterDescriptor{
			ID:           id,
			Title:        title,
			Link:         link,
			ChapterIndex: parseNumber(item.Find(".epl-num").First().Text()),
		})
	})
	for i, j := 0, len(chapters)-1; i < j; i, j = i+1, j-1 {
		chapters[i], chapters[j] = chapters[j], chapters[i]
	}
	return chapters
}
