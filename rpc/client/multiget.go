package client

import (
	"context"
	"github.com/ValentinKolb/dDoc/lib/cache"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/ValentinKolb/dDoc/lib/pipeline"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"net/http"
	"time"
)

// MultiGetCommand packs logical requests into one outer request and demultiplexes
// the outer response back into one GetResponse per request.
// A MultiGetCommand can be executed any number of times, also concurrently.
type MultiGetCommand struct {
	cache      cache.ICache
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	keyCase    *pipeline.KeyCaseOptions
	convention pipeline.CaseConvention
}

// NewMultiGetCommand creates a new batch command and connects the transport.
// The cache may be nil, in that case no validators are sent and nothing is cached.
// Cached payloads are stored re-cased, so the entity field case is part of the cache key
// and commands with different conventions can share one cache.
func NewMultiGetCommand(
	cache cache.ICache,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
	config common.ClientConfig,
) (*MultiGetCommand, error) {

	convention, err := pipeline.ParseCaseConvention(config.EntityFieldCase)
	if err != nil {
		return nil, dberr.Wrap(dberr.CodeInvalidArgument, err, "invalid entity field case")
	}

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &MultiGetCommand{
		cache:      cache,
		transport:  transport,
		serializer: serializer,
		keyCase:    envelopeKeyCase(convention),
		convention: convention,
	}, nil
}

// Execute sends all requests in one outer call. The returned responses are aligned
// with requests: responses[i] is the response to requests[i].
//
// Not modified sub-responses carry the cached payload. The cache is only updated
// after the whole outer response was decoded, a failed or aborted call leaves it untouched.
func (c *MultiGetCommand) Execute(ctx context.Context, requests []*common.GetRequest) ([]*common.GetResponse, error) {
	if len(requests) == 0 {
		return []*common.GetResponse{}, nil
	}

	node, err := c.transport.SelectNode()
	if err != nil {
		return nil, err
	}

	batch := c.newBatch(node, requests)

	body, err := c.serializer.Serialize(batch.build())
	if err != nil {
		return nil, dberr.Wrap(dberr.CodeInvalidArgument, err, "failed to serialize multi get request")
	}

	start := time.Now()
	outerCalls.Inc()
	subRequests.Add(len(requests))

	stream, err := c.transport.Send(ctx, node, &transport.Request{
		Method:      http.MethodPost,
		Path:        common.MultiGetPath,
		Body:        body,
		ContentType: c.serializer.ContentType(),
	})
	if err != nil {
		failedCalls.Inc()
		return nil, err
	}
	if stream == nil {
		failedCalls.Inc()
		return nil, dberr.New(dberr.CodeInvalidResponse, "outer response has no body")
	}
	defer func() {
		if err := stream.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	result, err := pipeline.New[[]*common.GetResponse]().
		ParseJSONAsync(pipeline.NewPath(common.FieldResults, "*"), false).
		StreamKeyCaseTransform(c.keyCase).
		CollectResult(make([]*common.GetResponse, 0, len(requests)), batch.fold).
		Process(ctx, stream)
	if err != nil {
		failedCalls.Inc()
		return nil, err
	}

	responses := result.Result
	if len(responses) != len(requests) {
		failedCalls.Inc()
		return nil, dberr.New(dberr.CodeInvalidResponse, "expected %d results, got %d", len(requests), len(responses))
	}

	batch.commit()
	outerCallSeconds.UpdateDuration(start)

	Logger.Debugf("multi get to %s: %d sub-requests (%d not modified) in %v",
		node.URL, len(requests), batch.notModified, time.Since(start))
	return responses, nil
}

// --------------------------------------------------------------------------
// Batch State (one per Execute)
// --------------------------------------------------------------------------

// batch holds the state of one outer call
type batch struct {
	command  *MultiGetCommand
	node     common.ServerNode
	requests []*common.GetRequest
	keys     []string
	// staged holds the cache writes of this call, they are applied by commit
	staged      map[string]cache.Entry
	order       []string
	notModified int
}

func (c *MultiGetCommand) newBatch(node common.ServerNode, requests []*common.GetRequest) *batch {
	b := &batch{
		command:  c,
		node:     node,
		requests: requests,
		keys:     make([]string, len(requests)),
		staged:   make(map[string]cache.Entry),
	}
	for i, req := range requests {
		b.keys[i] = cacheKey(req.MethodOrDefault(), node.BaseURL()+req.URLAndQuery(), c.convention)
	}
	return b
}

// build creates the outer request body, attaching the cached validators
func (b *batch) build() common.MultiGetRequest {
	items := make([]common.MultiGetRequestItem, len(b.requests))
	for i, req := range b.requests {
		headers := make(map[string]string, len(req.Headers)+1)
		if b.command.cache != nil {
			if entry, ok := b.command.cache.Get(b.keys[i]); ok && entry.Validator != "" {
				headers[common.HeaderIfNoneMatch] = `"` + entry.Validator + `"`
			}
		}

		// caller headers win
		for name, value := range req.Headers {
			headers[name] = value
		}

		items[i] = common.MultiGetRequestItem{
			Url:     b.node.DatabasePath() + req.URL,
			Query:   req.Query,
			Method:  req.MethodOrDefault(),
			Headers: headers,
			Content: req.Body,
		}
	}
	return common.MultiGetRequest{Requests: items}
}

// fold converts the i-th element of the outer results array
func (b *batch) fold(acc []*common.GetResponse, next pipeline.Element, i int) ([]*common.GetResponse, error) {
	if i >= len(b.requests) {
		return nil, dberr.New(dberr.CodeInvalidResponse, "got more results than the %d requests sent", len(b.requests))
	}

	raw, ok := next.Value.(map[string]any)
	if !ok {
		return nil, dberr.New(dberr.CodeResponseParsing, "result %d is not an object", i)
	}

	resp, err := common.NewGetResponse(raw)
	if err != nil {
		return nil, dberr.Wrap(dberr.CodeResponseParsing, err, "invalid result %d", i)
	}

	if resp.StatusCode == http.StatusNotModified {
		if err := b.readFromCache(resp, i); err != nil {
			return nil, err
		}
	} else {
		b.stage(resp, i)
	}

	return append(acc, resp), nil
}

// readFromCache substitutes the cached payload of a not modified response.
// Writes staged earlier in the same call are visible.
func (b *batch) readFromCache(resp *common.GetResponse, i int) error {
	key := b.keys[i]

	entry, ok := b.staged[key]
	if !ok && b.command.cache != nil {
		entry, ok = b.command.cache.Get(key)
	}
	if !ok {
		return dberr.New(dberr.CodeCacheInconsistency, "not modified response without cache entry for %s", key)
	}

	resp.Result = entry.Payload
	resp.FromCache = true
	b.notModified++
	notModified.Inc()
	return nil
}

// stage remembers the payload of a response for the cache
func (b *batch) stage(resp *common.GetResponse, i int) {
	if b.command.cache == nil || !resp.HasPayload() {
		return
	}
	validator := resp.ETag()
	if validator == "" {
		return
	}

	key := b.keys[i]
	if _, ok := b.staged[key]; !ok {
		b.order = append(b.order, key)
	}
	b.staged[key] = cache.Entry{Validator: validator, Payload: resp.Result}
}

// commit writes the staged entries to the cache, the last one per key wins
func (b *batch) commit() {
	for _, key := range b.order {
		entry := b.staged[key]
		b.command.cache.Set(key, entry.Validator, entry.Payload)
	}
}
