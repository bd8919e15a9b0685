// Package stac provides the STAC item search types used against the Sentinel
// Hub catalog, wrapping planetlabs/go-stac for the item model.
package stac

import (
	gostac "github.com/planetlabs/go-stac"
)

// Re-export core types from planetlabs/go-stac for convenience
type (
	Item = gostac.Item
	Link = gostac.Link
)

// ItemCollection is one page of a catalog search response.
type ItemCollection struct {
	Type     string         `json:"type"`
	Features []*gostac.Item `json:"features"`
	Links    []*gostac.Link `json:"links,omitempty"`
	Context  *Context       `json:"context,omitempty"`
}

// Context carries the paging state of a search response. Next is absent on
// the last page.
type Context struct {
	Next     *int `json:"next,omitempty"`
	Limit    int  `json:"limit,omitempty"`
	Returned int  `json:"returned"`
}

// NextToken returns the token for the following page, if any.
func (ic *ItemCollection) NextToken() (int, bool) {
	if ic == nil || ic.Context == nil || ic.Context.Next == nil {
		return 0, false
	}
	return *ic.Context.Next, true
}

// Fields selects the item members a search returns.
type Fields struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// SearchRequest is a STAC item search POST body.
type SearchRequest struct {
	Collections []string  `json:"collections"`
	BBox        []float64 `json:"bbox,omitempty"`
	DateTime    string    `json:"datetime,omitempty"`
	Limit       int       `json:"limit,omitempty"`

	// Next is the paging token from the previous response.
	Next *int `json:"next,omitempty"`

	// Filter extension, CQL2-JSON only.
	Filter     any    `json:"filter,omitempty"`
	FilterLang string `json:"filter-lang,omitempty"`

	Fields *Fields `json:"fields,omitempty"`
}

// FilterLangCQL2JSON is the only filter language sent upstream.
const FilterLangCQL2JSON = "cql2-json"

// WithNext returns a copy of req positioned at the page named by token.
func (req SearchRequest) WithNext(token int) SearchRequest {
	req.Next = &token
	return req
}
