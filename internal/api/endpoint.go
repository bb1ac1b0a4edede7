package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/and161185/wordshelf/internal/collection"
	"github.com/and161185/wordshelf/internal/model"
)

// Endpoint is the list/delete surface of one resource kind.
type Endpoint[T any] struct {
	c        *Client
	resource string // path segment and plural noun, e.g. "words"
	noun     string // singular noun, e.g. "word"
}

// NewEndpoint binds a resource kind to the client.
func NewEndpoint[T any](c *Client, resource, noun string) *Endpoint[T] {
	return &Endpoint[T]{c: c, resource: resource, noun: noun}
}

// ItemEndpoint binds a saved-item kind.
func ItemEndpoint(c *Client, k model.Kind) *Endpoint[model.SavedItem] {
	noun := strings.TrimSuffix(string(k), "s")
	return NewEndpoint[model.SavedItem](c, string(k), noun)
}

// List performs GET /v1/<resource>?offset=&limit=&<filters>.
// Filters are "name=value" pairs; a name may repeat.
func (e *Endpoint[T]) List(ctx context.Context, q collection.Query, token string) (model.ListPage[T], error) {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("limit", strconv.Itoa(q.Limit))
	for _, f := range q.Filters {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			continue
		}
		v.Add(name, value)
	}
	var page model.ListPage[T]
	err := e.c.do(ctx, call{
		method: http.MethodGet,
		path:   "/v1/" + e.resource,
		query:  v,
		token:  token,
		verb:   "fetch",
		noun:   e.resource,
	}, &page)
	return page, err
}

// Delete performs DELETE /v1/<resource>/<id>.
func (e *Endpoint[T]) Delete(ctx context.Context, id, token string) error {
	return e.c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/v1/" + e.resource + "/" + url.PathEscape(id),
		token:  token,
		verb:   "delete",
		noun:   e.noun,
	}, nil)
}

var _ collection.Endpoint[model.SavedItem] = (*Endpoint[model.SavedItem])(nil)

// PDFPages reads pages of saved PDF documents.
type PDFPages struct{ c *Client }

// NewPDFPages binds the PDF feed to the client.
func NewPDFPages(c *Client) *PDFPages { return &PDFPages{c: c} }

// ListFeed performs GET /v1/pdfs/<id>/pages?offset=&limit=.
func (p *PDFPages) ListFeed(ctx context.Context, docID string, offset, limit int, token string) (model.ListPage[model.PDFPage], error) {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(offset))
	v.Set("limit", strconv.Itoa(limit))
	var page model.ListPage[model.PDFPage]
	err := p.c.do(ctx, call{
		method: http.MethodGet,
		path:   "/v1/pdfs/" + url.PathEscape(docID) + "/pages",
		query:  v,
		token:  token,
		verb:   "fetch",
		noun:   "pdf pages",
	}, &page)
	return page, err
}
