package gwallet

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"

	"github.com/google/go-querystring/query"
)

// ListOptions scopes a listing. ResourceID (the parent class of
// object-shaped resources) and IssuerID (for class-shaped resources) are
// mutually exclusive.
type ListOptions struct {
	ResourceID string
	IssuerID   string
	// PageSize defaults to the client's page size.
	PageSize  int
	PageToken string
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T
	// NextPageToken is empty on the last page.
	NextPageToken string
}

// listParams are the query parameters of a list call.
type listParams struct {
	ClassID    string `url:"classId,omitempty"`
	IssuerID   string `url:"issuerId,omitempty"`
	Token      string `url:"token,omitempty"`
	MaxResults int    `url:"maxResults,omitempty"`
}

// Pagination is the pagination metadata of a list response.
type Pagination struct {
	Kind           string `json:"kind,omitempty"`
	NextPageToken  string `json:"nextPageToken,omitempty"`
	ResultsPerPage int    `json:"resultsPerPage,omitempty"`
}

// listResponse is the body of a list call.
type listResponse struct {
	Resources  []json.RawMessage `json:"resources"`
	Pagination Pagination        `json:"pagination"`
}

// paginatorFunc fetches the page at token and returns its items and the
// next token. Items decoded before an error are returned with it.
type paginatorFunc[T any] func(ctx context.Context, token string) ([]T, string, error)

// iterate returns an iterator that walks through all pages using the provided fetcher.
// Pages are fetched strictly in token order, one at a time.
func iterate[T any](ctx context.Context, token string, fetch paginatorFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(*new(T), err)
				return
			}

			items, next, err := fetch(ctx, token)
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if err != nil {
				yield(*new(T), err)
				return
			}

			if next == "" {
				return
			}
			token = next
		}
	}
}

// List returns an iterator over every resource of type T in scope, fetching
// pages until the API reports no further token.
func List[T Resource](ctx context.Context, c *Client, opts ListOptions) iter.Seq2[T, error] {
	return listIter(ctx, c, nameOf[T](), opts, decodeAs[T])
}

// ListPage returns a single page of resources of type T.
func ListPage[T Resource](ctx context.Context, c *Client, opts ListOptions) (Page[T], error) {
	return listPage(ctx, c, nameOf[T](), opts, decodeAs[T])
}

// ListByName is [List] for a resource type known only by name.
func (c *Client) ListByName(ctx context.Context, name string, opts ListOptions) iter.Seq2[Resource, error] {
	decode, err := c.modelDecoder(name)
	if err != nil {
		return func(yield func(Resource, error) bool) {
			yield(nil, err)
		}
	}
	return listIter(ctx, c, name, opts, decode)
}

// ListPageByName is [ListPage] for a resource type known only by name.
func (c *Client) ListPageByName(ctx context.Context, name string, opts ListOptions) (Page[Resource], error) {
	decode, err := c.modelDecoder(name)
	if err != nil {
		return Page[Resource]{}, err
	}
	return listPage(ctx, c, name, opts, decode)
}

func listIter[T any](ctx context.Context, c *Client, name string, opts ListOptions, decode func(json.RawMessage) (T, error)) iter.Seq2[T, error] {
	return iterate(ctx, opts.PageToken, func(ctx context.Context, token string) ([]T, string, error) {
		o := opts
		o.PageToken = token
		page, err := listPage(ctx, c, name, o, decode)
		return page.Items, page.NextPageToken, err
	})
}

func listPage[T any](ctx context.Context, c *Client, name string, opts ListOptions, decode func(json.RawMessage) (T, error)) (Page[T], error) {
	entry, params, err := c.listQuery(name, opts)
	if err != nil {
		return Page[T]{}, err
	}

	v, err := query.Values(params)
	if err != nil {
		return Page[T]{}, err
	}

	var resp listResponse
	err = c.doJSON(ctx, exchange{
		method:   http.MethodGet,
		url:      c.entryURL(entry, ""),
		params:   v,
		resource: entry.Name,
		id:       params.ClassID + params.IssuerID,
	}, &resp)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: make([]T, 0, len(resp.Resources))}
	for i, raw := range resp.Resources {
		item, err := decode(raw)
		if err != nil {
			c.logger.ErrorContext(ctx, "invalid listed record",
				"resource", entry.Name,
				"position", i,
				"id", rawField(raw, entry.IDField),
				"error", err,
			)
			return page, fmt.Errorf("%s record %d: %w", entry.Name, i, err)
		}
		page.Items = append(page.Items, item)
	}

	if entry.ListFilter != ListUnfiltered &&
		!(len(resp.Resources) == 0 && resp.Pagination.ResultsPerPage == 0) {
		page.NextPageToken = resp.Pagination.NextPageToken
	}

	return page, nil
}

// listQuery validates opts against the listing shape of name. It does not
// touch the network.
func (c *Client) listQuery(name string, opts ListOptions) (*RegistryEntry, listParams, error) {
	var params listParams

	if opts.ResourceID != "" && opts.IssuerID != "" {
		return nil, params, fmt.Errorf("list %s: resource id and issuer id are exclusive: %w", name, ErrInvalidArgument)
	}

	entry, err := c.entryFor(name, CapList)
	if err != nil {
		return nil, params, err
	}

	switch entry.ListFilter {
	case ListByClass:
		if opts.ResourceID == "" {
			return nil, params, fmt.Errorf("list %s: class id required: %w", name, ErrInvalidArgument)
		}
		params.ClassID = opts.ResourceID
	case ListByIssuer:
		if opts.IssuerID == "" {
			return nil, params, fmt.Errorf("list %s: issuer id required: %w", name, ErrInvalidArgument)
		}
		params.IssuerID = opts.IssuerID
	case ListUnfiltered:
		if opts.ResourceID != "" || opts.IssuerID != "" {
			return nil, params, fmt.Errorf("list %s: takes no filter: %w", name, ErrInvalidArgument)
		}
		return entry, params, nil
	}

	params.MaxResults = opts.PageSize
	if params.MaxResults <= 0 {
		params.MaxResults = c.pageSize
	}
	params.Token = opts.PageToken

	return entry, params, nil
}

func (c *Client) modelDecoder(name string) (func(json.RawMessage) (Resource, error), error) {
	entry, err := c.registry.LookupByName(name)
	if err != nil {
		return nil, err
	}
	if entry.New == nil {
		return nil, fmt.Errorf("%s has no model: %w", name, ErrCapability)
	}
	return func(raw json.RawMessage) (Resource, error) {
		r := entry.New()
		if err := json.Unmarshal(raw, r); err != nil {
			return nil, err
		}
		if err := validate(r); err != nil {
			return nil, err
		}
		return r, nil
	}, nil
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, err
	}
	return v, validate(v)
}

// rawField extracts a top-level string field for log context.
func rawField(raw json.RawMessage, field string) string {
	var m map[string]any
	if json.Unmarshal(raw, &m) != nil {
		return ""
	}
	s, _ := m[field].(string)
	return s
}
