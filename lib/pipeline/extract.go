package pipeline

import (
	jsoniter "github.com/json-iterator/go"
	"io"
	"iter"
	"strconv"
	"strings"
)

// jsonAPI keeps numbers as json.Number so that no precision is lost before reviving
var jsonAPI = jsoniter.Config{UseNumber: true}.Froze()

// readBufferSize is the chunk size the tokenizer pulls from the body
const readBufferSize = 4096

// Element is one value emitted by the JSON stage.
// Path is only set when the extraction was configured to emit paths.
type Element struct {
	Path  []string
	Value any
}

// PathString returns the path of the element as dotted string
func (e Element) PathString() string {
	return strings.Join(e.Path, ".")
}

// --------------------------------------------------------------------------
// Sources
// --------------------------------------------------------------------------

// rawSource emits the whole body as a single string element
func rawSource(r io.Reader) iter.Seq2[Element, error] {
	return func(yield func(Element, error) bool) {
		data, err := io.ReadAll(r)
		if err != nil {
			yield(Element{}, err)
			return
		}
		yield(Element{Value: string(data)}, nil)
	}
}

// syncSource reads the whole body and parses it into one element
func syncSource(r io.Reader) iter.Seq2[Element, error] {
	return func(yield func(Element, error) bool) {
		data, err := io.ReadAll(r)
		if err != nil {
			yield(Element{}, err)
			return
		}
		var v any
		if err := jsonAPI.Unmarshal(data, &v); err != nil {
			yield(Element{}, err)
			return
		}
		yield(Element{Value: v}, nil)
	}
}

// streamSource tokenizes the body and emits every value selected by path without
// materializing the rest of the document. Top level fields not leading to path are
// stored in rest (if rest is not nil), everything else is skipped.
func streamSource(r io.Reader, path Path, emitPath bool, rest map[string]any) iter.Seq2[Element, error] {
	return func(yield func(Element, error) bool) {
		w := &walker{
			it:       jsoniter.Parse(jsonAPI, r, readBufferSize),
			path:     path,
			emitPath: emitPath,
			rest:     rest,
			yield:    yield,
		}
		w.walk(nil)
		if w.stopped {
			return
		}
		// io.EOF is reported when a complete document ends exactly at the end of the body
		if err := w.it.Error; err != nil && err != io.EOF {
			yield(Element{}, err)
		}
	}
}

// --------------------------------------------------------------------------
// Walker
// --------------------------------------------------------------------------

type walker struct {
	it       *jsoniter.Iterator
	path     Path
	emitPath bool
	rest     map[string]any
	yield    func(Element, error) bool
	stopped  bool // the consumer does not want more elements
}

// walk processes the value at location and returns false if the walk has to end,
// either because the consumer stopped or the tokenizer failed.
func (w *walker) walk(location []string) bool {
	if w.path.matches(location) {
		v := w.it.Read()
		if w.it.Error != nil && w.it.Error != io.EOF {
			return false
		}
		el := Element{Value: v}
		if w.emitPath {
			el.Path = location
		}
		if !w.yield(el, nil) {
			w.stopped = true
			return false
		}
		return true
	}

	if !w.path.leadsTo(location) {
		if len(location) == 1 && w.rest != nil {
			w.rest[location[0]] = w.it.Read()
		} else {
			w.it.Skip()
		}
		return w.ok()
	}

	switch w.it.WhatIsNext() {
	case jsoniter.ObjectValue:
		cont := true
		w.it.ReadObjectCB(func(_ *jsoniter.Iterator, key string) bool {
			cont = w.walk(appendKey(location, key))
			return cont
		})
		return cont && w.ok()
	case jsoniter.ArrayValue:
		cont := true
		i := 0
		w.it.ReadArrayCB(func(_ *jsoniter.Iterator) bool {
			cont = w.walk(appendKey(location, strconv.Itoa(i)))
			i++
			return cont
		})
		return cont && w.ok()
	case jsoniter.InvalidValue:
		w.it.ReportError("walk", "unexpected token or end of input")
		return false
	default:
		// a scalar where the path expects a container, nothing to emit
		w.it.Skip()
		return w.ok()
	}
}

func (w *walker) ok() bool {
	return w.it.Error == nil || w.it.Error == io.EOF
}

// appendKey returns a new slice, location is shared with the callers
func appendKey(location []string, key string) []string {
	return append(location[:len(location):len(location)], key)
}
