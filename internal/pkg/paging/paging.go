// Package paging implements stateless page-number pagination with the
// {count, next, previous, results} envelope.
package paging

import (
	"net/http"
	"net/url"
	"strconv"
)

// Params holds a validated page request. Page is 1-based.
type Params struct {
	Page     int
	PageSize int
}

// Parse reads page/page_size query values, falling back to defaultSize and
// clamping page_size to maxSize. Invalid values fall back to defaults.
func Parse(q url.Values, defaultSize, maxSize int) Params {
	p := Params{Page: 1, PageSize: defaultSize}

	if raw := q.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Page = n
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			if n > maxSize {
				n = maxSize
			}
			p.PageSize = n
		}
	}
	return p
}

// Offset converts the page number into a row offset.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Envelope is the list response body shared by every paginated endpoint.
type Envelope struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// NewEnvelope builds the envelope with absolute next/previous links derived
// from the inbound request URL.
func NewEnvelope(r *http.Request, p Params, count int64, results interface{}) Envelope {
	env := Envelope{Count: count, Results: results}

	last := int((count + int64(p.PageSize) - 1) / int64(p.PageSize))
	if p.Page < last {
		env.Next = pageLink(r, p.Page+1)
	}
	if p.Page > 1 && p.Page <= last+1 {
		env.Previous = pageLink(r, p.Page-1)
	}
	return env
}

func pageLink(r *http.Request, page int) *string {
	u := *r.URL
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	u.Scheme = scheme
	u.Host = r.Host

	s := u.String()
	return &s
}
