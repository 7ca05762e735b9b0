// Package pipeline decodes streamed JSON response bodies into typed results
// without holding the decoded document in memory twice.
//
// A Pipeline is configured once with a chain of optional stages and then used to
// process any number of bodies. The stages run in a fixed order for every element:
//
//   - CollectBody: keep the unmodified body (e.g. to put the exact bytes into a cache).
//
//   - ParseJSONSync / ParseJSONAsync: either parse the whole body into one value, or
//     tokenize it and emit only the values at a Path. A Path is a list of segments
//     (Key, Pattern, Any); the emitted elements may carry the location they were found
//     at, so later stages can branch per path.
//
//   - StreamKeyCaseTransform: re-case the object keys of every element
//     (verbatim, camel, pascal) with per location rules and exclusions for reserved
//     keys such as @metadata.
//
//   - Rest collection: when the extraction is scoped to a path, every top level field
//     not leading to the path is collected into Result.Rest, optionally re-cased with
//     RestKeyCaseTransform (e.g. query statistics next to a Results array).
//
//   - CollectResult: a fold (acc, element, index) -> acc producing the result.
//     Without one, only the last element is kept.
//
// Usage Example:
//
//	res, err := pipeline.New[[]any]().
//		ParseJSONAsync(pipeline.NewPath("Results", "*"), false).
//		StreamKeyCaseTransform(pipeline.DocumentKeyCase(pipeline.CaseCamel)).
//		CollectResult(nil, pipeline.CollectValues).
//		Process(ctx, resp.Body)
//
// The tokenizer is json-iterator's streaming Iterator. Elements flow through the stages
// as an iter.Seq2, so the fold sees the first element while the rest of the body is
// still on the wire. Numbers are decoded as json.Number.
//
// Errors:
//
//	A nil body fails with dberr.ErrInvalidResponse, malformed json with
//	dberr.ErrResponseParsing (the error's Body holds the raw content read so far),
//	a cancelled context with dberr.ErrRequestAborted.
package pipeline
