package lazy

import (
	"context"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"net/http"
	"net/url"
	"strings"
)

// LoadOperation loads documents by id, optionally with included documents
type LoadOperation struct {
	operationState
	ids      []string
	includes []string
}

// NewLoadOperation creates a load of the given ids
func NewLoadOperation(ids []string, includes ...string) (*LoadOperation, error) {
	if len(ids) == 0 {
		return nil, dberr.New(dberr.CodeInvalidArgument, "at least one id is required")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, dberr.New(dberr.CodeInvalidArgument, "id cannot be empty")
		}
	}
	return &LoadOperation{ids: ids, includes: includes}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lazy.Operation)
// --------------------------------------------------------------------------

func (o *LoadOperation) CreateRequest() *common.GetRequest {
	var query strings.Builder
	query.WriteString("?")
	for _, include := range o.includes {
		query.WriteString("&include=")
		query.WriteString(url.QueryEscape(include))
	}
	for _, id := range o.ids {
		query.WriteString("&id=")
		query.WriteString(url.QueryEscape(id))
	}
	return &common.GetRequest{
		URL:   "/docs",
		Query: query.String(),
	}
}

func (o *LoadOperation) HandleResponse(ctx context.Context, resp *common.GetResponse) error {
	if o.forceRetry(resp) {
		return nil
	}

	set := &DocumentSet{
		IDs:       o.ids,
		Documents: make([]Document, len(o.ids)),
		Includes:  make(map[string]Document),
	}

	// none of the documents exists
	if resp.StatusCode == http.StatusNotFound || !resp.HasPayload() {
		o.result = set
		return nil
	}

	parsed, err := parseDocuments(ctx, resp.Result)
	if err != nil {
		return err
	}
	if len(parsed.Result.results) != len(o.ids) {
		return dberr.New(dberr.CodeResponseParsing, "expected %d results, got %d", len(o.ids), len(parsed.Result.results))
	}

	copy(set.Documents, parsed.Result.results)
	set.Includes = parsed.Result.includes
	o.result = set
	return nil
}
