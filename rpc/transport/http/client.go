package http

import (
	"bytes"
	"context"
	"fmt"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/http")

var (
	sendOk     = metrics.NewCounter(`ddoc_transport_requests_total{result="ok"}`)
	sendFailed = metrics.NewCounter(`ddoc_transport_requests_total{result="error"}`)
	sendRetry  = metrics.NewCounter(`ddoc_transport_retries_total`)
)

// errorBodyLimit bounds the part of an error response that is kept for diagnostics
const errorBodyLimit = 1024

// initialBackoff is the wait before the first retry, it doubles with every attempt
var initialBackoff = 50 * time.Millisecond

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	nodes      []common.ServerNode
	client     *http.Client
	counter    uint32
	retryCount int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return dberr.New(dberr.CodeInvalidArgument, "no endpoints provided")
	}

	// Validate each server URL
	nodes := config.Nodes()
	for _, node := range nodes {
		parsed, err := url.Parse(node.URL)
		if err != nil {
			return dberr.Wrap(dberr.CodeInvalidArgument, err, "invalid endpoint %q", node.URL)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return dberr.New(dberr.CodeInvalidArgument, "endpoint %q must use http or https", node.URL)
		}
	}

	timeout := time.Duration(config.TimeoutSecond) * time.Second

	// Create client with default transport
	t.client = &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       timeout,
			ResponseHeaderTimeout: timeout,
		},
	}
	t.nodes = nodes
	t.counter = 0
	t.retryCount = config.RetryCount

	Logger.Infof("Using %d endpoint(s) for database %q", len(nodes), config.Database)
	return nil
}

func (t *httpClientTransport) SelectNode() (common.ServerNode, error) {
	if t.client == nil || len(t.nodes) == 0 {
		return common.ServerNode{}, dberr.New(dberr.CodeTransport, "http transport not initialized")
	}

	// Select the next server via round-robin
	if len(t.nodes) == 1 {
		return t.nodes[0], nil
	}
	idx := atomic.AddUint32(&t.counter, 1) % uint32(len(t.nodes))
	return t.nodes[idx], nil
}

func (t *httpClientTransport) Send(ctx context.Context, node common.ServerNode, req *transport.Request) (io.ReadCloser, error) {
	// Check if the transport is initialized
	if t.client == nil {
		return nil, dberr.New(dberr.CodeTransport, "http transport not initialized")
	}

	requestURL := node.BaseURL() + req.Path

	// We always try at least once
	maxRetries := t.retryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	backoff := initialBackoff
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		body, retry, err := t.send(ctx, requestURL, req)
		if err == nil {
			sendOk.Inc()
			return body, nil
		}
		lastErr = err

		if !retry || i == maxRetries-1 {
			break
		}
		sendRetry.Inc()
		Logger.Debugf("Request attempt %d/%d to %s failed: %v", i+1, maxRetries, requestURL, err)

		// Exponential backoff with a small random jitter (+-10%)
		jitter := time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64()))
		select {
		case <-ctx.Done():
			sendFailed.Inc()
			return nil, dberr.Wrap(dberr.CodeRequestAborted, ctx.Err(), "request to %s aborted", requestURL)
		case <-time.After(jitter):
		}
		backoff *= 2
	}

	sendFailed.Inc()
	return nil, lastErr
}

func (t *httpClientTransport) Close() error {
	// Close the client
	if t.client != nil {
		t.client.CloseIdleConnections()
	}

	// Reset the client and nodes
	t.client = nil
	t.nodes = nil

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// send performs a single attempt. The returned bool reports whether the
// failure is worth another attempt.
func (t *httpClientTransport) send(ctx context.Context, requestURL string, req *transport.Request) (io.ReadCloser, bool, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, false, dberr.Wrap(dberr.CodeInvalidArgument, err, "failed to create request")
	}
	if req.ContentType != "" {
		httpRequest.Header.Set("Content-Type", req.ContentType)
	}
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := t.client.Do(httpRequest)
	if err != nil {
		if dberr.IsAbort(err) || ctx.Err() != nil {
			return nil, false, dberr.Wrap(dberr.CodeRequestAborted, err, "request to %s aborted", requestURL)
		}
		return nil, true, dberr.Wrap(dberr.CodeTransport, err, "request to %s failed", requestURL)
	}

	// Check if the response status code is OK
	if httpResponse.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResponse.Body, errorBodyLimit))
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
		return nil, httpResponse.StatusCode >= http.StatusInternalServerError, &dberr.Error{
			Code: dberr.CodeTransport,
			Msg:  fmt.Sprintf("http error: %s", httpResponse.Status),
			Body: string(snippet),
		}
	}

	return httpResponse.Body, false, nil
}
