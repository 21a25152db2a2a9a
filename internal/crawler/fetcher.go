package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const pageKey = "page"

// Page is a fetched document reduced to what the crawler needs
type Page struct {
	URL        string
	StatusCode int
	Links      []string
}

// Fetcher retrieves a page and the raw href values of its anchors
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// FetchError describes a failed fetch. StatusCode is 0 when no response arrived.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Blocked reports whether the server refused the crawler rather than failed
func (e *FetchError) Blocked() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// CollyFetcher fetches pages with a synchronous colly collector.
// Each request carries its own Page on the colly context, so one collector
// is shared by every visitation.
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a fetcher with the given request timeout and user agent
func NewCollyFetcher(timeout time.Duration, userAgent string) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(), // dedup is done by link admission
		colly.MaxDepth(0),
	)
	c.SetRequestTimeout(timeout)

	c.OnResponse(func(r *colly.Response) {
		if page, ok := r.Ctx.GetAny(pageKey).(*Page); ok {
			page.StatusCode = r.StatusCode
			page.URL = r.Request.URL.String()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if page, ok := e.Request.Ctx.GetAny(pageKey).(*Page); ok {
			page.Links = append(page.Links, e.Attr("href"))
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		if page, ok := r.Ctx.GetAny(pageKey).(*Page); ok {
			page.StatusCode = r.StatusCode
		}
	})

	return &CollyFetcher{collector: c}
}

// Fetch performs a GET on url and returns the anchors found in the body.
// A request already in flight is not interrupted by ctx.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	page := &Page{URL: url}
	reqCtx := colly.NewContext()
	reqCtx.Put(pageKey, page)

	if err := f.collector.Request(http.MethodGet, url, nil, reqCtx, nil); err != nil {
		return nil, &FetchError{URL: url, StatusCode: page.StatusCode, Err: err}
	}
	return page, nil
}
