package lazy

import (
	"bytes"
	"context"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/ValentinKolb/dDoc/lib/pipeline"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("lazy")

// --------------------------------------------------------------------------
// Operation Contract
// --------------------------------------------------------------------------

// Operation is a deferred read. Its request is built when the scheduler flushes,
// its response is handed back after the batch returned.
type Operation interface {
	// CreateRequest builds the sub-request. It must not have side effects, since it
	// is called again for every retry pass.
	CreateRequest() *common.GetRequest
	// HandleResponse consumes the sub-response and sets Result, QueryResult and RequiresRetry.
	HandleResponse(ctx context.Context, resp *common.GetResponse) error
	// Result returns the value produced by the last HandleResponse (nil on retry)
	Result() any
	// QueryResult returns the query statistics, nil for non query operations
	QueryResult() *QueryResult
	// RequiresRetry reports whether the operation must be sent again
	RequiresRetry() bool
}

// --------------------------------------------------------------------------
// Documents
// --------------------------------------------------------------------------

// Document is a decoded document including its @metadata object
type Document map[string]any

// ID returns the @metadata.@id of the document, "" if it has none
func (d Document) ID() string {
	metadata, ok := d["@metadata"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := metadata["@id"].(string)
	return id
}

// DocumentSet is the result of a load or a prefix scan
type DocumentSet struct {
	// IDs of the documents, aligned with Documents
	IDs []string
	// Documents is nil at the position of a document that does not exist
	Documents []Document
	// Includes holds the included documents by id
	Includes map[string]Document
}

// Get returns the document with the given id (or nil) and whether the id is part of the set
func (s *DocumentSet) Get(id string) (Document, bool) {
	for i, docID := range s.IDs {
		if docID == id {
			return s.Documents[i], true
		}
	}
	return nil, false
}

// documents is the accumulator of a documents response
type documents struct {
	results  []Document
	includes map[string]Document
}

// documentsPath selects the elements of Results and the values of Includes
var documentsPath = pipeline.Path{pipeline.Pattern(`^(Results|Includes)$`), pipeline.Any()}

// collectDocuments is the fold for documents responses
func collectDocuments(acc documents, next pipeline.Element, _ int) (documents, error) {
	var doc Document
	if m, ok := next.Value.(map[string]any); ok {
		doc = m
	}

	switch next.Path[0] {
	case "Results":
		acc.results = append(acc.results, doc)
	case "Includes":
		id := doc.ID()
		if id == "" {
			return acc, dberr.New(dberr.CodeResponseParsing, "document must have @id in @metadata")
		}
		acc.includes[id] = doc
	}
	return acc, nil
}

// parseDocuments decodes a payload of the form {"Results": [...], "Includes": {...}}.
// The remaining top level fields are returned camel cased.
func parseDocuments(ctx context.Context, payload []byte) (*pipeline.Result[documents], error) {
	return pipeline.New[documents]().
		ParseJSONAsync(documentsPath, true).
		RestKeyCaseTransform(&pipeline.KeyCaseOptions{Default: pipeline.CaseCamel}).
		CollectResult(documents{includes: make(map[string]Document)}, collectDocuments).
		Process(ctx, bytes.NewReader(payload))
}

// operationState holds the fields all operations share
type operationState struct {
	result        any
	requiresRetry bool
}

func (s *operationState) Result() any               { return s.result }
func (s *operationState) RequiresRetry() bool       { return s.requiresRetry }
func (s *operationState) QueryResult() *QueryResult { return nil }

// forceRetry handles a response flagged for retry and reports whether it was one
func (s *operationState) forceRetry(resp *common.GetResponse) bool {
	s.requiresRetry = resp.ForceRetry
	if resp.ForceRetry {
		s.result = nil
	}
	return resp.ForceRetry
}
