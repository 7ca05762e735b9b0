package http

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func init() {
	initialBackoff = time.Millisecond
}

func connect(t *testing.T, retries int, endpoints ...string) transport.IRPCClientTransport {
	t.Helper()
	config := common.DefaultClientConfig()
	config.Endpoints = endpoints
	config.RetryCount = retries
	tr := NewHttpClientTransport()
	if err := tr.Connect(config); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func send(t *testing.T, tr transport.IRPCClientTransport, ctx context.Context) (string, error) {
	t.Helper()
	node, err := tr.SelectNode()
	if err != nil {
		t.Fatalf("SelectNode failed: %v", err)
	}
	body, err := tr.Send(ctx, node, &transport.Request{
		Method:      http.MethodPost,
		Path:        common.MultiGetPath,
		Body:        []byte(`{"Requests":[]}`),
		ContentType: "application/json",
	})
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	return string(data), err
}

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/databases/db/multi_get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"Requests":[]}` {
			t.Errorf("unexpected body %s", body)
		}
		_, _ = w.Write([]byte(`{"Results":[]}`))
	}))
	defer server.Close()

	tr := connect(t, 3, server.URL)
	got, err := send(t, tr, context.Background())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got != `{"Results":[]}` {
		t.Errorf("unexpected response %s", got)
	}
}

func TestRoundRobin(t *testing.T) {
	var hitsA, hitsB atomic.Int32
	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsA.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer serverA.Close()
	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsB.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer serverB.Close()

	tr := connect(t, 1, serverA.URL, serverB.URL)
	for i := 0; i < 10; i++ {
		if _, err := send(t, tr, context.Background()); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	if hitsA.Load() != 5 || hitsB.Load() != 5 {
		t.Errorf("expected 5/5 distribution, got %d/%d", hitsA.Load(), hitsB.Load())
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retries   int
		wantCalls int32
	}{
		{"server error is retried", http.StatusServiceUnavailable, 3, 3},
		{"client error is not retried", http.StatusBadRequest, 3, 1},
		{"at least one attempt", http.StatusInternalServerError, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("boom"))
			}))
			defer server.Close()

			tr := connect(t, tt.retries, server.URL)
			_, err := send(t, tr, context.Background())
			if !errors.Is(err, dberr.ErrTransport) {
				t.Fatalf("expected transport error, got %v", err)
			}
			var dErr *dberr.Error
			if !errors.As(err, &dErr) || dErr.Body != "boom" {
				t.Errorf("expected error body to be kept, got %v", err)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls.Load())
			}
		})
	}
}

func TestRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	tr := connect(t, 3, server.URL)
	got, err := send(t, tr, context.Background())
	if err != nil || got != "ok" {
		t.Fatalf("expected recovery on second attempt, got %q, %v", got, err)
	}
}

func TestCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr := connect(t, 3, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := send(t, tr, ctx)
	if !errors.Is(err, dberr.ErrRequestAborted) {
		t.Errorf("expected aborted error, got %v", err)
	}
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		name      string
		endpoints []string
	}{
		{"no endpoints", nil},
		{"unsupported scheme", []string{"tcp://localhost:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := common.DefaultClientConfig()
			config.Endpoints = tt.endpoints
			err := NewHttpClientTransport().Connect(config)
			if !errors.Is(err, dberr.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}

	if _, err := NewHttpClientTransport().SelectNode(); !errors.Is(err, dberr.ErrTransport) {
		t.Errorf("expected transport error before Connect, got %v", err)
	}
}
