package lazy

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"net/http"
	"testing"
	"time"
)

func TestCreateRequest(t *testing.T) {
	load, _ := NewLoadOperation([]string{"users/1", "users/2"}, "Company")
	query, _ := NewQueryOperation(&IndexQuery{Query: "from Users"}, nil)

	tests := []struct {
		name       string
		op         Operation
		wantURL    string
		wantQuery  string
		wantMethod string
	}{
		{
			name:      "load with include",
			op:        load,
			wantURL:   "/docs",
			wantQuery: "?&include=Company&id=users%2F1&id=users%2F2",
		},
		{
			name:      "starts with defaults",
			op:        NewStartsWithOperation("users/", nil),
			wantURL:   "/docs",
			wantQuery: "?startsWith=users%2F&matches=&exclude=&start=0&pageSize=25&startAfter=",
		},
		{
			name: "starts with options",
			op: NewStartsWithOperation("users/", &StartsWithOptions{
				Matches: "a*|b*", Exclude: "c*", Start: 10, PageSize: 5, StartAfter: "users/9",
			}),
			wantURL:   "/docs",
			wantQuery: "?startsWith=users%2F&matches=a%2A%7Cb%2A&exclude=c%2A&start=10&pageSize=5&startAfter=users%2F9",
		},
		{
			name:       "query",
			op:         query,
			wantURL:    "/queries",
			wantQuery:  "?queryHash=" + (&IndexQuery{Query: "from Users"}).QueryHash(),
			wantMethod: http.MethodPost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.op.CreateRequest()
			if req.URL != tt.wantURL || req.Query != tt.wantQuery || req.Method != tt.wantMethod {
				t.Errorf("unexpected request %s %s%s", req.Method, req.URL, req.Query)
			}
			// rebuilding must give the same request
			again := tt.op.CreateRequest()
			if again.Query != req.Query || string(again.Body) != string(req.Body) {
				t.Errorf("CreateRequest is not deterministic")
			}
		})
	}

	if string(query.CreateRequest().Body) != `{"Query":"from Users"}` {
		t.Errorf("unexpected query body %s", query.CreateRequest().Body)
	}
}

func TestQueryHash(t *testing.T) {
	base := &IndexQuery{Query: "from Users where Name = $name", QueryParameters: map[string]any{"name": "John", "age": 3}}
	same := &IndexQuery{Query: "from Users where Name = $name", QueryParameters: map[string]any{"age": 3, "name": "John"}}
	otherParam := &IndexQuery{Query: "from Users where Name = $name", QueryParameters: map[string]any{"name": "Jane", "age": 3}}
	otherPage := &IndexQuery{Query: "from Users where Name = $name", QueryParameters: map[string]any{"name": "John", "age": 3}, PageSize: 10}

	if base.QueryHash() != same.QueryHash() {
		t.Errorf("equal queries must hash equally")
	}
	if base.QueryHash() == otherParam.QueryHash() || base.QueryHash() == otherPage.QueryHash() {
		t.Errorf("different queries must hash differently")
	}
}

func TestInvalidOperations(t *testing.T) {
	if _, err := NewLoadOperation(nil); !errors.Is(err, dberr.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for no ids, got %v", err)
	}
	if _, err := NewLoadOperation([]string{"a", " "}); !errors.Is(err, dberr.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for an empty id, got %v", err)
	}
	if _, err := NewQueryOperation(&IndexQuery{}, nil); !errors.Is(err, dberr.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for an empty query, got %v", err)
	}
}

func TestLoadMissingItem(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a", "missing"})
	err := op.HandleResponse(context.Background(), &common.GetResponse{
		StatusCode: http.StatusOK,
		Result: json.RawMessage(`{"Results":[{"Name":"A","@metadata":{"@id":"a"}},null],` +
			`"Includes":{"c":{"Name":"C","@metadata":{"@id":"c"}}}}`),
	})
	if err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}

	set := op.Result().(*DocumentSet)
	if len(set.Documents) != 2 || len(set.IDs) != 2 {
		t.Fatalf("expected two slots, got %+v", set)
	}
	if set.Documents[0]["Name"] != "A" {
		t.Errorf("unexpected first document %v", set.Documents[0])
	}
	doc, found := set.Get("missing")
	if !found || doc != nil {
		t.Errorf("expected an empty slot for the missing id, got %v (found=%v)", doc, found)
	}
	if set.Includes["c"]["Name"] != "C" {
		t.Errorf("expected include c, got %v", set.Includes)
	}
}

func TestLoadNotFound(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a", "b"})
	if err := op.HandleResponse(context.Background(), &common.GetResponse{StatusCode: http.StatusNotFound}); err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}
	set := op.Result().(*DocumentSet)
	if len(set.Documents) != 2 || set.Documents[0] != nil || set.Documents[1] != nil {
		t.Errorf("expected two empty slots, got %+v", set)
	}
}

func TestLoadResultCountMismatch(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a", "b"})
	err := op.HandleResponse(context.Background(), &common.GetResponse{
		StatusCode: http.StatusOK,
		Result:     json.RawMessage(`{"Results":[null]}`),
	})
	if !errors.Is(err, dberr.ErrResponseParsing) {
		t.Errorf("expected parsing error, got %v", err)
	}
}

func TestForceRetry(t *testing.T) {
	load, _ := NewLoadOperation([]string{"a"})
	query, _ := NewQueryOperation(&IndexQuery{Query: "from Users"}, nil)
	ops := []Operation{load, NewStartsWithOperation("a", nil), query}

	for _, op := range ops {
		if err := op.HandleResponse(context.Background(), &common.GetResponse{StatusCode: http.StatusOK, ForceRetry: true}); err != nil {
			t.Fatalf("HandleResponse failed: %v", err)
		}
		if !op.RequiresRetry() || op.Result() != nil || op.QueryResult() != nil {
			t.Errorf("%T: expected retry without result", op)
		}

		if err := op.HandleResponse(context.Background(), &common.GetResponse{StatusCode: http.StatusNotFound}); err != nil {
			t.Fatalf("HandleResponse failed: %v", err)
		}
		if op.RequiresRetry() || op.Result() == nil {
			t.Errorf("%T: expected resolution on the second response", op)
		}
	}
}

func TestStartsWith(t *testing.T) {
	op := NewStartsWithOperation("users/", nil)
	err := op.HandleResponse(context.Background(), &common.GetResponse{
		StatusCode: http.StatusOK,
		Result: json.RawMessage(`{"Results":[` +
			`{"Name":"A","@metadata":{"@id":"users/1"}},` +
			`{"Name":"no id"},` +
			`{"Name":"B","@metadata":{"@id":"users/2"}}]}`),
	})
	if err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}

	set := op.Result().(*DocumentSet)
	if len(set.IDs) != 2 || set.IDs[0] != "users/1" || set.IDs[1] != "users/2" {
		t.Errorf("unexpected ids %v", set.IDs)
	}
	if doc, _ := set.Get("users/2"); doc["Name"] != "B" {
		t.Errorf("unexpected document %v", doc)
	}
}

func TestQueryResult(t *testing.T) {
	payload := json.RawMessage(`{
		"TotalResults": 2,
		"SkippedResults": 0,
		"DurationInMs": 12,
		"IndexName": "Auto/Users/ByName",
		"IsStale": false,
		"IndexTimestamp": "2024-03-01T10:00:00.1234567",
		"ResultEtag": -77,
		"Results": [{"Name":"A","@metadata":{"@id":"users/1"}},{"Name":"B","@metadata":{"@id":"users/2"}}],
		"Includes": {"companies/1": {"Name":"C","@metadata":{"@id":"companies/1"}}}
	}`)

	tests := []struct {
		name         string
		fromCache    bool
		wantDuration int64
	}{
		{"fresh", false, 12},
		{"from cache", true, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, _ := NewQueryOperation(&IndexQuery{Query: "from Users"}, nil)
			err := op.HandleResponse(context.Background(), &common.GetResponse{
				StatusCode: http.StatusOK,
				Result:     payload,
				FromCache:  tt.fromCache,
			})
			if err != nil {
				t.Fatalf("HandleResponse failed: %v", err)
			}

			result := op.QueryResult()
			if result == nil || op.Result() != result {
				t.Fatalf("expected the query result as result")
			}
			if result.TotalResults != 2 || result.IndexName != "Auto/Users/ByName" || result.ResultEtag != -77 {
				t.Errorf("unexpected statistics %+v", result)
			}
			if result.DurationInMs != tt.wantDuration {
				t.Errorf("expected duration %d, got %d", tt.wantDuration, result.DurationInMs)
			}
			wantStamp := time.Date(2024, 3, 1, 10, 0, 0, 123456700, time.UTC)
			if !result.IndexTimestamp.Equal(wantStamp) {
				t.Errorf("expected index timestamp %v, got %v", wantStamp, result.IndexTimestamp)
			}
			if len(result.Results) != 2 || result.Results[1]["Name"] != "B" {
				t.Errorf("unexpected results %v", result.Results)
			}
			if result.Includes["companies/1"]["Name"] != "C" {
				t.Errorf("unexpected includes %v", result.Includes)
			}
		})
	}
}

func TestQueryIncludeWithoutID(t *testing.T) {
	op, _ := NewQueryOperation(&IndexQuery{Query: "from Users"}, nil)
	err := op.HandleResponse(context.Background(), &common.GetResponse{
		StatusCode: http.StatusOK,
		Result:     json.RawMessage(`{"Results":[],"Includes":{"x":{"Name":"no id"}}}`),
	})
	if !errors.Is(err, dberr.ErrResponseParsing) {
		t.Errorf("expected parsing error, got %v", err)
	}
}
