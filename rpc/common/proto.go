package common

import (
	"encoding/json"
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"net/http"
	"strings"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// --------------------------------------------------------------------------
// Protocol Constants
// --------------------------------------------------------------------------

const (
	// HeaderIfNoneMatch carries the cached validator of a sub-request
	HeaderIfNoneMatch = "If-None-Match"
	// HeaderETag carries the validator (change vector) of a sub-response
	HeaderETag = "ETag"
	// MultiGetPath is the endpoint of the outer request, relative to the database url
	MultiGetPath = "/multi_get"
)

// --------------------------------------------------------------------------
// Server Node
// --------------------------------------------------------------------------

// ServerNode is the node (and database) a request is sent to
type ServerNode struct {
	URL      string
	Database string
}

// DatabasePath returns the path prefix of the database ("/databases/<name>")
func (n ServerNode) DatabasePath() string {
	return "/databases/" + n.Database
}

// BaseURL returns the absolute url of the database on this node
func (n ServerNode) BaseURL() string {
	return strings.TrimRight(n.URL, "/") + n.DatabasePath()
}

// --------------------------------------------------------------------------
// Logical Request / Response
// --------------------------------------------------------------------------

// GetRequest is one logical sub-request of a multi get batch.
// It is immutable once built.
type GetRequest struct {
	// URL relative to the database, e.g. "/docs"
	URL string
	// Query including the leading "?", may be empty
	Query string
	// Method defaults to GET
	Method string
	// Headers merged over the cache headers, these win on collisions
	Headers map[string]string
	// Body is sent as json content, may be nil
	Body json.RawMessage
}

// URLAndQuery returns the url and the query of the request
func (r *GetRequest) URLAndQuery() string {
	return r.URL + r.Query
}

// MethodOrDefault returns the method, GET if none was set
func (r *GetRequest) MethodOrDefault() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// GetResponse is the result of one sub-request
type GetResponse struct {
	StatusCode int
	Headers    map[string]string
	// Result is the raw json payload of the sub-response (nil if the server sent none)
	Result json.RawMessage
	// ForceRetry marks the result as unusable, the sub-request has to be sent again
	ForceRetry bool
	// FromCache is set when Result was substituted from the cache (not modified)
	FromCache bool
}

// ETag returns the validator of the response without quotes, or "" if there is none.
// The header name is matched case-insensitively.
func (r *GetResponse) ETag() string {
	for name, value := range r.Headers {
		if strings.EqualFold(name, HeaderETag) {
			return strings.Trim(value, `"`)
		}
	}
	return ""
}

// RequestHasErrors reports whether the status code signals a failed sub-request
func (r *GetResponse) RequestHasErrors() bool {
	switch r.StatusCode {
	case 0, // aggressively cached
		http.StatusOK,
		http.StatusCreated,
		http.StatusNonAuthoritativeInfo,
		http.StatusNoContent,
		http.StatusNotModified,
		http.StatusNotFound:
		return false
	default:
		return true
	}
}

// HasPayload reports whether the response carries a non empty result
func (r *GetResponse) HasPayload() bool {
	return len(r.Result) > 0 && string(r.Result) != "null"
}

// --------------------------------------------------------------------------
// Wire Format
// --------------------------------------------------------------------------

// MultiGetRequestItem is a sub-request as sent on the wire
type MultiGetRequestItem struct {
	Url     string            `json:"Url"`
	Query   string            `json:"Query"`
	Method  string            `json:"Method"`
	Headers map[string]string `json:"Headers"`
	Content json.RawMessage   `json:"Content,omitempty"`
}

// MultiGetRequest is the body of the outer request
type MultiGetRequest struct {
	Requests []MultiGetRequestItem `json:"Requests"`
}

// Field names of a sub-response in the outer response ({"Results": [...]})
const (
	FieldResults    = "Results"
	FieldStatusCode = "StatusCode"
	FieldHeaders    = "Headers"
	FieldResult     = "Result"
	FieldForceRetry = "ForceRetry"
)

// NewGetResponse creates a GetResponse from a decoded sub-response object.
// The result is re-encoded, so that it can be cached and parsed by its operation.
func NewGetResponse(raw map[string]any) (*GetResponse, error) {
	resp := &GetResponse{
		Headers: make(map[string]string),
	}

	switch code := raw[FieldStatusCode].(type) {
	case json.Number:
		n, err := code.Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q: %w", code, err)
		}
		resp.StatusCode = int(n)
	case float64:
		resp.StatusCode = int(code)
	case nil:
	default:
		return nil, fmt.Errorf("invalid status code type %T", code)
	}

	if headers, ok := raw[FieldHeaders].(map[string]any); ok {
		for name, value := range headers {
			resp.Headers[name] = fmt.Sprint(value)
		}
	}

	if result, ok := raw[FieldResult]; ok && result != nil {
		payload, err := jsonAPI.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		resp.Result = payload
	}

	if retry, ok := raw[FieldForceRetry].(bool); ok {
		resp.ForceRetry = retry
	}

	return resp, nil
}
