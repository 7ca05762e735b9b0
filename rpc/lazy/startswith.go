package lazy

import (
	"context"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultPageSize is the page size of a prefix scan without explicit page size
const DefaultPageSize = 25

// StartsWithOptions narrows a prefix scan
type StartsWithOptions struct {
	// Matches is a '|' separated list of wildcards the rest of the id has to match
	Matches string
	// Exclude is a '|' separated list of wildcards excluding ids
	Exclude string
	Start   int
	// PageSize defaults to DefaultPageSize
	PageSize int
	// StartAfter skips all ids up to and including this one
	StartAfter string
}

// StartsWithOperation lists the documents whose id starts with a prefix
type StartsWithOperation struct {
	operationState
	prefix string
	opts   StartsWithOptions
}

// NewStartsWithOperation creates a prefix scan, opts may be nil
func NewStartsWithOperation(prefix string, opts *StartsWithOptions) *StartsWithOperation {
	o := &StartsWithOperation{prefix: prefix}
	if opts != nil {
		o.opts = *opts
	}
	if o.opts.PageSize <= 0 {
		o.opts.PageSize = DefaultPageSize
	}
	return o
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lazy.Operation)
// --------------------------------------------------------------------------

func (o *StartsWithOperation) CreateRequest() *common.GetRequest {
	return &common.GetRequest{
		URL: "/docs",
		Query: "?startsWith=" + url.QueryEscape(o.prefix) +
			"&matches=" + url.QueryEscape(o.opts.Matches) +
			"&exclude=" + url.QueryEscape(o.opts.Exclude) +
			"&start=" + strconv.Itoa(o.opts.Start) +
			"&pageSize=" + strconv.Itoa(o.opts.PageSize) +
			"&startAfter=" + url.QueryEscape(o.opts.StartAfter),
	}
}

func (o *StartsWithOperation) HandleResponse(ctx context.Context, resp *common.GetResponse) error {
	if o.forceRetry(resp) {
		return nil
	}

	set := &DocumentSet{Includes: make(map[string]Document)}
	if resp.StatusCode == http.StatusNotFound || !resp.HasPayload() {
		o.result = set
		return nil
	}

	parsed, err := parseDocuments(ctx, resp.Result)
	if err != nil {
		return err
	}

	for _, doc := range parsed.Result.results {
		id := doc.ID()
		if id == "" {
			Logger.Debugf("skipping document without id in prefix scan %q", o.prefix)
			continue
		}
		set.IDs = append(set.IDs, id)
		set.Documents = append(set.Documents, doc)
	}
	set.Includes = parsed.Result.includes
	o.result = set
	return nil
}
