// Package mapping is the hook into the entity mapping layer: it revives raw decoded
// JSON values into typed results after the response pipeline folded them.
//
// The default IReviver is built on mapstructure. Keys are matched case-insensitively
// against json tags, json.Number values are converted to the target numeric type and
// date strings in the server formats are parsed into time.Time.
package mapping
