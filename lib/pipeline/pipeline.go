package pipeline

import (
	"bytes"
	"context"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"iter"
)

var Logger = logger.GetLogger("pipeline")

// diagnosticLimit bounds the raw content kept for parsing errors when the
// body is not collected anyway. The last bytes read are kept.
const diagnosticLimit = 64 * 1024

// FoldFunc reduces the emitted elements into the pipeline result.
// index counts the elements seen so far, starting with 0.
type FoldFunc[T any] func(acc T, next Element, index int) (T, error)

// Result is the outcome of Pipeline.Process
type Result[T any] struct {
	// Result is the folded result
	Result T
	// Rest holds the top level fields outside the extraction path,
	// nil if the extraction was not scoped to a path
	Rest map[string]any
	// Body is the unmodified body, empty unless CollectBody was configured
	Body string
}

type extraction struct {
	sync     bool
	path     Path
	emitPath bool
}

// --------------------------------------------------------------------------
// Pipeline Builder
// --------------------------------------------------------------------------

// Pipeline decodes a streamed JSON response body. Every stage is optional and
// executed in a fixed order for every element:
//
//	raw body capture -> json extraction -> key case transform -> fold
//
// A Pipeline holds no state of a single decode, so one configured Pipeline can
// process any number of bodies, also concurrently.
type Pipeline[T any] struct {
	collectBody bool
	extraction  *extraction
	streamCase  *KeyCaseOptions
	restCase    *KeyCaseOptions
	init        T
	fold        FoldFunc[T]
	err         error
}

// New creates a pipeline that keeps only the last element as result.
func New[T any]() *Pipeline[T] {
	return &Pipeline[T]{
		fold: lastResult[T],
	}
}

// CollectBody makes Process return the unmodified body alongside the result.
func (p *Pipeline[T]) CollectBody() *Pipeline[T] {
	p.collectBody = true
	return p
}

// ParseJSONSync parses the whole body into one in-memory value which is emitted as single element.
func (p *Pipeline[T]) ParseJSONSync() *Pipeline[T] {
	p.extraction = &extraction{sync: true}
	return p
}

// ParseJSONAsync tokenizes the body and emits every value selected by path.
// An empty path emits the whole document. If emitPath is set, every element carries
// the location it was found at. Scoping to a non-empty path collects the top level
// fields not leading to the path into Result.Rest.
func (p *Pipeline[T]) ParseJSONAsync(path Path, emitPath bool) *Pipeline[T] {
	p.extraction = &extraction{path: path, emitPath: emitPath}
	return p
}

// StreamKeyCaseTransform re-cases the keys of every emitted element.
// It requires a json stage (ParseJSONSync or ParseJSONAsync) to be configured first.
func (p *Pipeline[T]) StreamKeyCaseTransform(opts *KeyCaseOptions) *Pipeline[T] {
	if opts == nil {
		p.err = dberr.New(dberr.CodeInvalidArgument, "key case options cannot be nil")
		return p
	}
	if p.extraction == nil {
		p.err = dberr.New(dberr.CodeInvalidArgument, "cannot use key case transform without parsing json first")
		return p
	}
	p.streamCase = opts
	return p
}

// RestKeyCaseTransform re-cases the keys of the collected rest.
func (p *Pipeline[T]) RestKeyCaseTransform(opts *KeyCaseOptions) *Pipeline[T] {
	p.restCase = opts
	return p
}

// CollectResult sets the initial accumulator and the fold. A nil fold keeps the last element.
func (p *Pipeline[T]) CollectResult(init T, fold FoldFunc[T]) *Pipeline[T] {
	p.init = init
	if fold == nil {
		fold = lastResult[T]
	}
	p.fold = fold
	return p
}

// --------------------------------------------------------------------------
// Processing
// --------------------------------------------------------------------------

// Process decodes body. The result is available only after the whole body was consumed.
//
// A nil body fails with an InvalidResponse error, malformed json with a ResponseParsing
// error carrying the raw content read so far. Errors returned by the fold are passed
// through unchanged.
func (p *Pipeline[T]) Process(ctx context.Context, body io.Reader) (*Result[T], error) {
	if body == nil {
		return nil, dberr.New(dberr.CodeInvalidResponse, "body stream cannot be nil")
	}
	if p.err != nil {
		return nil, p.err
	}

	// raw body capture (full or bounded for diagnostics)
	var raw rawBuffer
	if p.collectBody {
		raw = &bytes.Buffer{}
	} else {
		raw = &tailBuffer{limit: diagnosticLimit}
	}
	src := io.TeeReader(body, raw)

	// json extraction
	var rest map[string]any
	var elements iter.Seq2[Element, error]
	switch {
	case p.extraction == nil:
		elements = rawSource(src)
	case p.extraction.sync:
		elements = syncSource(src)
	default:
		if len(p.extraction.path) > 0 {
			rest = make(map[string]any)
		}
		elements = streamSource(src, p.extraction.path, p.extraction.emitPath, rest)
	}

	// key case transform
	if p.streamCase != nil {
		elements = transformKeys(elements, p.streamCase)
	}

	// fold
	acc := p.init
	index := 0
	for el, err := range elements {
		if err != nil {
			return nil, p.failure(ctx, err, raw)
		}
		if err := ctx.Err(); err != nil {
			return nil, dberr.Wrap(dberr.CodeRequestAborted, err, "response processing aborted")
		}
		if acc, err = p.fold(acc, el, index); err != nil {
			return nil, err
		}
		index++
	}

	result := &Result[T]{Result: acc}

	if rest != nil {
		if p.restCase != nil {
			rest, _ = p.restCase.Transform(rest).(map[string]any)
		}
		result.Rest = rest
	}

	if p.collectBody {
		// the tokenizer stops after the document, keep trailing bytes too
		if _, err := io.Copy(io.Discard, src); err != nil {
			return nil, p.failure(ctx, err, raw)
		}
		result.Body = raw.String()
	}

	Logger.Debugf("processed %d elements", index)
	return result, nil
}

// failure classifies an error of the json stage
func (p *Pipeline[T]) failure(ctx context.Context, err error, raw rawBuffer) error {
	if ctx.Err() != nil || dberr.IsAbort(err) {
		return dberr.Wrap(dberr.CodeRequestAborted, err, "response processing aborted")
	}
	return dberr.NewParsingError(err, raw.String())
}

// transformKeys is the key case stage
func transformKeys(src iter.Seq2[Element, error], opts *KeyCaseOptions) iter.Seq2[Element, error] {
	return func(yield func(Element, error) bool) {
		for el, err := range src {
			if err == nil {
				el.Value = opts.Transform(el.Value)
			}
			if !yield(el, err) {
				return
			}
		}
	}
}

// --------------------------------------------------------------------------
// Raw Body Buffers
// --------------------------------------------------------------------------

type rawBuffer interface {
	io.Writer
	String() string
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	// compact once twice the limit is buffered
	if len(b.buf) > 2*b.limit {
		b.buf = append(b.buf[:0], b.buf[len(b.buf)-b.limit:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	if len(b.buf) > b.limit {
		return string(b.buf[len(b.buf)-b.limit:])
	}
	return string(b.buf)
}
