package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"
	defaultTimeout   = 30 * time.Second
)

// Options configures a Client
type Options struct {
	BaseURL          string
	APIURL           string
	UserAgent        string
	CloudflareBypass bool
	RetryCount       int
	RetryWait        time.Duration
	Timeout          time.Duration
	Logger           *log.Logger
}

// Client talks to the site: its WordPress REST API and its HTML pages
type Client struct {
	rest    *resty.Client
	baseURL string
	log     *log.Logger
}

// NewClient creates a new API client
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryWait == 0 {
		opts.RetryWait = 3 * time.Second
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = strings.TrimRight(opts.BaseURL, "/") + "/wp-json/wp/v2"
	}

	rest := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(opts.Timeout).
		SetLogger(logger).
		SetHeader("Accept-Charset", "utf-8").
		SetHeader("User-Agent", opts.UserAgent).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryAfter(retryAfter).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests
		})

	if opts.CloudflareBypass {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		rest.SetTransport(cloudflarebp.AddCloudFlareByPass(transport))
	}

	return &Client{
		rest:    rest,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		log:     logger.With("comp", "api"),
	}
}

// retryAfter honours the Retry-After header of 429 responses
func retryAfter(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
	if resp.StatusCode() != http.StatusTooManyRequests {
		return 0, nil
	}
	if v := resp.Header().Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second, nil
		}
		if t, err := http.ParseTime(v); err == nil {
			return time.Until(t), nil
		}
	}
	return 3 * time.Second, nil
}

// BaseURL returns the site root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// wpError is the error body of the WordPress API
type wpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wpRendered is a WordPress field with a rendered HTML value
type wpRendered struct {
	Rendered string `json:"rendered"`
}

// wpPost is a chapter as returned by /posts
type wpPost struct {
	ID         int        `json:"id"`
	Title      wpRendered `json:"title"`
	Content    wpRendered `json:"content"`
	Link       string     `json:"link"`
	Categories []int      `json:"categories"`
}

func (p wpPost) body() models.ChapterBody {
	return models.ChapterBody{
		ID:         p.ID,
		Title:      p.Title.Rendered,
		Content:    p.Content.Rendered,
		Link:       p.Link,
		Categories: p.Categories,
	}
}

// parseResponse checks the status and unmarshals the response body
func parseResponse[T any](resp *resty.Response, err error) (T, error) {
	var result T
	if err != nil {
		return result, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return result, fmt.Errorf("%s: %w", resp.Request.URL, ErrNotFound)
	}
	if resp.StatusCode() >= 400 {
		var errResp wpError
		if err := json.Unmarshal(resp.Body(), &errResp); err != nil || errResp.Message == "" {
			return result, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
		}
		return result, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), errResp.Message)
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return result, fmt.Errorf("decode %s: %w", resp.Request.URL, err)
	}

	return result, nil
}

// first returns the first element of a list response
func first[T any](list []T, err error, what string) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if len(list) == 0 {
		return zero, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return list[0], nil
}

// Novel methods

// GetNovel returns the novel with the given id
func (c *Client) GetNovel(ctx context.Context, id int) (models.Novel, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("id", strconv.Itoa(id)).
		Get("/categories/{id}")
	return parseResponse[models.Novel](resp, err)
}

// GetNovelByChapterID returns the novel a chapter belongs to
func (c *Client) GetNovelByChapterID(ctx context.Context, chapterID int) (models.Novel, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("post", strconv.Itoa(chapterID)).
		Get("/categories")
	list, err := parseResponse[[]models.Novel](resp, err)
	return first(list, err, fmt.Sprintf("novel of chapter %d", chapterID))
}

// GetNovelBySlug returns the novel with the given slug
func (c *Client) GetNovelBySlug(ctx context.Context, slug string) (models.Novel, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("slug", slug).
		Get("/categories")
	list, err := parseResponse[[]models.Novel](resp, err)
	return first(list, err, fmt.Sprintf("novel %q", slug))
}

// Chapter methods

// GetChapter returns the chapter with the given id
func (c *Client) GetChapter(ctx context.Context, id int) (models.ChapterBody, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("id", strconv.Itoa(id)).
		Get("/posts/{id}")
	post, err := parseResponse[wpPost](resp, err)
	if err != nil {
		return models.ChapterBody{}, err
	}
	return post.body(), nil
}

// FetchChapterBody returns the body of a chapter for the reader
func (c *Client) FetchChapterBody(ctx context.Context, id int) (models.ChapterBody, error) {
	c.log.Debug("fetch chapter", "id", id)
	return c.GetChapter(ctx, id)
}

// GetChaptersByNovelID returns one page of a novel's chapters, newest first
func (c *Client) GetChaptersByNovelID(ctx context.Context, novelID, page, pageSize int) ([]models.ChapterBody, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"categories": strconv.Itoa(novelID),
			"per_page":   strconv.Itoa(pageSize),
			"page":       strconv.Itoa(page),
		}).
		Get("/posts")
	posts, err := parseResponse[[]wpPost](resp, err)
	if err != nil {
		return nil, err
	}
	bodies := make([]models.ChapterBody, len(posts))
	for i, p := range posts {
		bodies[i] = p.body()
	}
	return bodies, nil
}
