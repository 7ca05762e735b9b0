package lazy

import (
	"context"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/ValentinKolb/dDoc/lib/mapping"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"
	"net/http"
	"strconv"
	"time"
)

// queryJSON writes maps with sorted keys, so that equal queries hash equally
var queryJSON = jsoniter.Config{SortMapKeys: true}.Froze()

// IndexQuery is a query as sent to the server
type IndexQuery struct {
	Query                  string         `json:"Query"`
	QueryParameters        map[string]any `json:"QueryParameters,omitempty"`
	Start                  int            `json:"Start,omitempty"`
	PageSize               int            `json:"PageSize,omitempty"`
	WaitForNonStaleResults bool           `json:"WaitForNonStaleResults,omitempty"`
}

// QueryHash identifies the query text and parameters. Queries are sent with POST,
// the hash in the url gives every query its own cache key.
func (q *IndexQuery) QueryHash() string {
	h := xxhash.New()
	_, _ = h.WriteString(q.Query)
	if len(q.QueryParameters) > 0 {
		params, err := queryJSON.Marshal(q.QueryParameters)
		if err == nil {
			_, _ = h.Write(params)
		}
	}
	_, _ = h.WriteString(strconv.Itoa(q.Start))
	_, _ = h.WriteString(strconv.Itoa(q.PageSize))
	_, _ = h.WriteString(strconv.FormatBool(q.WaitForNonStaleResults))
	return strconv.FormatUint(h.Sum64(), 10)
}

// QueryResult is the outcome of a query
type QueryResult struct {
	Results        []Document          `json:"results"`
	Includes       map[string]Document `json:"includes"`
	IndexName      string              `json:"indexName"`
	IsStale        bool                `json:"isStale"`
	TotalResults   int64               `json:"totalResults"`
	SkippedResults int64               `json:"skippedResults"`
	// DurationInMs is -1 if the result was served from the cache
	DurationInMs   int64     `json:"durationInMs"`
	IndexTimestamp time.Time `json:"indexTimestamp"`
	LastQueryTime  time.Time `json:"lastQueryTime"`
	ResultEtag     int64     `json:"resultEtag"`
	NodeTag        string    `json:"nodeTag"`
}

// QueryOperation executes a query
type QueryOperation struct {
	operationState
	query       *IndexQuery
	reviver     mapping.IReviver
	queryResult *QueryResult
}

// NewQueryOperation creates a query operation, reviver may be nil to use the default one
func NewQueryOperation(query *IndexQuery, reviver mapping.IReviver) (*QueryOperation, error) {
	if query == nil || query.Query == "" {
		return nil, dberr.New(dberr.CodeInvalidArgument, "query cannot be empty")
	}
	if reviver == nil {
		reviver = mapping.NewReviver()
	}
	return &QueryOperation{query: query, reviver: reviver}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lazy.Operation)
// --------------------------------------------------------------------------

func (o *QueryOperation) CreateRequest() *common.GetRequest {
	body, err := queryJSON.Marshal(o.query)
	if err != nil {
		// parameters that cannot be encoded are sent as null and rejected by the server
		Logger.Errorf("failed to encode query %q: %v", o.query.Query, err)
	}
	return &common.GetRequest{
		URL:    "/queries",
		Query:  "?queryHash=" + o.query.QueryHash(),
		Method: http.MethodPost,
		Body:   body,
	}
}

func (o *QueryOperation) HandleResponse(ctx context.Context, resp *common.GetResponse) error {
	if o.forceRetry(resp) {
		o.queryResult = nil
		return nil
	}

	result := &QueryResult{Includes: make(map[string]Document)}
	if resp.HasPayload() {
		parsed, err := parseDocuments(ctx, resp.Result)
		if err != nil {
			return err
		}
		if err := o.reviver.Revive(parsed.Rest, "QueryResult", result); err != nil {
			return dberr.Wrap(dberr.CodeResponseParsing, err, "invalid query result")
		}
		result.Results = parsed.Result.results
		result.Includes = parsed.Result.includes
	}

	if resp.FromCache {
		result.DurationInMs = -1
	}

	o.queryResult = result
	o.result = result
	return nil
}

func (o *QueryOperation) QueryResult() *QueryResult {
	return o.queryResult
}
