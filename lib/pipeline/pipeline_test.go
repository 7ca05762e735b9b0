package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"io"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"
)

// TestResidualIsolation tests that fields outside the scoped path end up in the rest
// and that only the scoped elements are re-cased
func TestResidualIsolation(t *testing.T) {
	body := `{"Stats":{"x":1},"Results":[{"Name":"a","@metadata":{"@id":"users/1","Raven-Type":"User"}},{"Name":"b"}]}`

	res, err := New[[]any]().
		ParseJSONAsync(NewPath("Results", "*"), false).
		StreamKeyCaseTransform(DocumentKeyCase(CaseCamel)).
		CollectResult(nil, CollectValues).
		Process(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	expectedRest := map[string]any{"Stats": map[string]any{"x": json.Number("1")}}
	if !reflect.DeepEqual(res.Rest, expectedRest) {
		t.Errorf("expected rest %v, got %v", expectedRest, res.Rest)
	}

	expected := []any{
		map[string]any{
			"name":      "a",
			"@metadata": map[string]any{"@id": "users/1", "Raven-Type": "User"},
		},
		map[string]any{"name": "b"},
	}
	if !reflect.DeepEqual(res.Result, expected) {
		t.Errorf("expected result %v, got %v", expected, res.Result)
	}

	if res.Body != "" {
		t.Errorf("body should not be collected, got %q", res.Body)
	}
}

// TestEmitPath tests the extraction with a pattern segment and emitted paths
func TestEmitPath(t *testing.T) {
	body := `{"Results":[{"A":1}],"Includes":{"users/1":{"B":2}},"TotalResults":1,"IsStale":false}`

	res, err := New[[]Element]().
		ParseJSONAsync(Path{Pattern(`^(Results|Includes)$`), Any()}, true).
		RestKeyCaseTransform(&KeyCaseOptions{Default: CaseCamel}).
		CollectResult(nil, CollectElements).
		Process(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(res.Result) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(res.Result))
	}
	if res.Result[0].PathString() != "Results.0" {
		t.Errorf("unexpected path of first element: %s", res.Result[0].PathString())
	}
	if res.Result[1].PathString() != "Includes.users/1" {
		t.Errorf("unexpected path of second element: %s", res.Result[1].PathString())
	}
	if !reflect.DeepEqual(res.Result[1].Value, map[string]any{"B": json.Number("2")}) {
		t.Errorf("unexpected include %v", res.Result[1].Value)
	}

	expectedRest := map[string]any{"totalResults": json.Number("1"), "isStale": false}
	if !reflect.DeepEqual(res.Rest, expectedRest) {
		t.Errorf("expected rest %v, got %v", expectedRest, res.Rest)
	}
}

// TestPathRules tests per path conventions below a verbatim envelope
func TestPathRules(t *testing.T) {
	body := `{"Results":[{"StatusCode":200,"Headers":{"ETag":"\"A:1\""},"Result":{"Results":[{"Name":"x","@metadata":{"@id":"a"}}],"Includes":{}}}]}`

	opts := &KeyCaseOptions{
		Default: CaseVerbatim,
		Paths: []PathRule{
			{Pattern: regexp.MustCompile(`^Result\.(Results|Includes)\.`), Convention: CaseCamel},
		},
		IgnoreKeys:  []*regexp.Regexp{ReservedKeys},
		IgnorePaths: []*regexp.Regexp{MetadataSubtree},
	}

	res, err := New[any]().
		ParseJSONAsync(NewPath("Results", "*"), false).
		StreamKeyCaseTransform(opts).
		Process(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	item, ok := res.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", res.Result)
	}
	if _, ok := item["StatusCode"]; !ok {
		t.Errorf("envelope keys must stay verbatim: %v", item)
	}
	result := item["Result"].(map[string]any)
	doc := result["Results"].([]any)[0].(map[string]any)
	if doc["name"] != "x" {
		t.Errorf("document keys must be camel cased: %v", doc)
	}
	if _, ok := doc["@metadata"].(map[string]any)["@id"]; !ok {
		t.Errorf("metadata must stay verbatim: %v", doc)
	}
}

// TestDefaultFoldKeepsLast tests that the default fold keeps the last element
func TestDefaultFoldKeepsLast(t *testing.T) {
	res, err := New[any]().
		ParseJSONAsync(NewPath("Results", "*"), false).
		Process(context.Background(), strings.NewReader(`{"Results":[1,2,3]}`))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Result != json.Number("3") {
		t.Errorf("expected last element 3, got %v", res.Result)
	}
}

// TestParseJSONSync tests the full synchronous parse
func TestParseJSONSync(t *testing.T) {
	res, err := New[map[string]any]().
		CollectBody().
		ParseJSONSync().
		StreamKeyCaseTransform(&KeyCaseOptions{Default: CaseCamel}).
		Process(context.Background(), strings.NewReader(`{"Name":"Oren","Tags":["a"]}`))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	expected := map[string]any{"name": "Oren", "tags": []any{"a"}}
	if !reflect.DeepEqual(res.Result, expected) {
		t.Errorf("expected %v, got %v", expected, res.Result)
	}
	if res.Body != `{"Name":"Oren","Tags":["a"]}` {
		t.Errorf("unexpected body %q", res.Body)
	}
	if res.Rest != nil {
		t.Errorf("sync parse has no rest, got %v", res.Rest)
	}
}

// TestRawBody tests the pipeline without a json stage
func TestRawBody(t *testing.T) {
	res, err := New[string]().
		CollectBody().
		Process(context.Background(), strings.NewReader("plain text"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Result != "plain text" || res.Body != "plain text" {
		t.Errorf("unexpected result %q / body %q", res.Result, res.Body)
	}
}

// TestCollectBodyKeepsTrailingBytes tests that the collected body is complete
func TestCollectBodyKeepsTrailingBytes(t *testing.T) {
	body := "{\"Results\":[]}\n\n"
	res, err := New[[]any]().
		CollectBody().
		ParseJSONAsync(NewPath("Results", "*"), false).
		CollectResult(nil, CollectValues).
		Process(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Body != body {
		t.Errorf("expected body %q, got %q", body, res.Body)
	}
	if len(res.Result) != 0 {
		t.Errorf("expected no elements, got %v", res.Result)
	}
}

// TestErrors tests the error taxonomy of the pipeline
func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		pipeline *Pipeline[any]
		body     io.Reader
		expected error
	}{
		{
			name:     "NilBody",
			pipeline: New[any]().ParseJSONAsync(NewPath("Results", "*"), false),
			body:     nil,
			expected: dberr.ErrInvalidResponse,
		},
		{
			name:     "Malformed",
			pipeline: New[any]().ParseJSONAsync(NewPath("Results", "*"), false),
			body:     strings.NewReader(`{"Results":[{"a":}]}`),
			expected: dberr.ErrResponseParsing,
		},
		{
			name:     "Truncated",
			pipeline: New[any]().ParseJSONAsync(NewPath("Results", "*"), false),
			body:     strings.NewReader(`{"Results":[{"a":1},`),
			expected: dberr.ErrResponseParsing,
		},
		{
			name:     "Empty",
			pipeline: New[any]().ParseJSONAsync(NewPath("Results", "*"), false),
			body:     strings.NewReader(``),
			expected: dberr.ErrResponseParsing,
		},
		{
			name:     "MalformedSync",
			pipeline: New[any]().ParseJSONSync(),
			body:     strings.NewReader(`{"a":`),
			expected: dberr.ErrResponseParsing,
		},
		{
			name:     "CaseTransformWithoutJSON",
			pipeline: New[any]().StreamKeyCaseTransform(&KeyCaseOptions{Default: CaseCamel}),
			body:     strings.NewReader(`{}`),
			expected: dberr.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.pipeline.Process(context.Background(), tt.body)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

// TestParsingErrorCarriesBody tests that the raw content is attached for diagnostics
func TestParsingErrorCarriesBody(t *testing.T) {
	body := `{"Results":[{"a":}]}`
	_, err := New[any]().
		ParseJSONAsync(NewPath("Results", "*"), false).
		Process(context.Background(), strings.NewReader(body))

	var e *dberr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *dberr.Error, got %T", err)
	}
	if !strings.Contains(e.Body, `{"a":`) {
		t.Errorf("expected body to contain the malformed content, got %q", e.Body)
	}
}

// TestParsingErrorKeepsTail tests that a failure deep in a large body keeps the bytes near it
func TestParsingErrorKeepsTail(t *testing.T) {
	body := `{"Results":[` + strings.Repeat(`{"a":1},`, 2*diagnosticLimit/8) + `{"broken":}]}`
	_, err := New[any]().
		ParseJSONAsync(NewPath("Results", "*"), false).
		Process(context.Background(), strings.NewReader(body))

	var e *dberr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *dberr.Error, got %T", err)
	}
	if len(e.Body) > diagnosticLimit {
		t.Errorf("diagnostic body exceeds the limit: %d bytes", len(e.Body))
	}
	if !strings.Contains(e.Body, `{"broken":`) {
		t.Errorf("expected the tail to contain the malformed content, got ...%q", e.Body[max(0, len(e.Body)-64):])
	}
}

func TestTailBuffer(t *testing.T) {
	tests := []struct {
		name   string
		writes []string
		want   string
	}{
		{"below limit", []string{"ab", "c"}, "abc"},
		{"exact limit", []string{"abcd"}, "abcd"},
		{"rolls over", []string{"abc", "def"}, "cdef"},
		{"compacts", []string{"abcdefghij", "k"}, "hijk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &tailBuffer{limit: 4}
			for _, w := range tt.writes {
				if n, err := b.Write([]byte(w)); err != nil || n != len(w) {
					t.Fatalf("Write returned %d, %v", n, err)
				}
			}
			if b.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, b.String())
			}
		})
	}
}

// TestFoldErrorPassesThrough tests that errors of the fold are returned unchanged
func TestFoldErrorPassesThrough(t *testing.T) {
	errFold := errors.New("fold failed")
	_, err := New[int]().
		ParseJSONAsync(NewPath("Results", "*"), false).
		CollectResult(0, func(acc int, _ Element, i int) (int, error) {
			if i == 1 {
				return acc, errFold
			}
			return acc + 1, nil
		}).
		Process(context.Background(), strings.NewReader(`{"Results":[1,2,3]}`))
	if !errors.Is(err, errFold) {
		t.Errorf("expected fold error, got %v", err)
	}
}

// TestCancelledContext tests that a cancelled context aborts processing
func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New[any]().
		ParseJSONAsync(NewPath("Results", "*"), false).
		Process(ctx, strings.NewReader(`{"Results":[1]}`))
	if !errors.Is(err, dberr.ErrRequestAborted) {
		t.Errorf("expected request aborted, got %v", err)
	}
}

// TestStreaming tests that elements reach the fold before the body is complete
func TestStreaming(t *testing.T) {
	pr, pw := io.Pipe()
	first := make(chan struct{})

	go func() {
		_, _ = pw.Write([]byte(`{"Results":[{"a":1},`))
		select {
		case <-first:
			_, _ = pw.Write([]byte(`{"a":2}]}`))
			_ = pw.Close()
		case <-time.After(5 * time.Second):
			_ = pw.CloseWithError(errors.New("first element was not streamed"))
		}
	}()

	res, err := New[int]().
		ParseJSONAsync(NewPath("Results", "*"), false).
		CollectResult(0, func(acc int, _ Element, i int) (int, error) {
			if i == 0 {
				close(first)
			}
			return acc + 1, nil
		}).
		Process(context.Background(), pr)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Result != 2 {
		t.Errorf("expected 2 elements, got %d", res.Result)
	}
}

// TestCaseConventions tests single key re-casing
func TestCaseConventions(t *testing.T) {
	tests := []struct {
		convention CaseConvention
		in, out    string
	}{
		{CaseCamel, "StatusCode", "statusCode"},
		{CaseCamel, "name", "name"},
		{CasePascal, "statusCode", "StatusCode"},
		{CaseVerbatim, "StatusCode", "StatusCode"},
		{CaseCamel, "", ""},
	}
	for _, tt := range tests {
		if got := tt.convention.Apply(tt.in); got != tt.out {
			t.Errorf("%s(%q): expected %q, got %q", tt.convention, tt.in, tt.out, got)
		}
	}

	if _, err := ParseCaseConvention("snake"); err == nil {
		t.Error("expected error for unknown convention")
	}
	if c, err := ParseCaseConvention("Camel"); err != nil || c != CaseCamel {
		t.Errorf("expected camel, got %s (%v)", c, err)
	}
}
