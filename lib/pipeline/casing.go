package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// --------------------------------------------------------------------------
// Case Conventions
// --------------------------------------------------------------------------

// CaseConvention names a field name casing.
type CaseConvention string

const (
	// CaseVerbatim keeps keys exactly as the server sent them (PascalCase for the protocol envelope)
	CaseVerbatim CaseConvention = "verbatim"
	// CaseCamel lower-cases the first letter of a key
	CaseCamel CaseConvention = "camel"
	// CasePascal upper-cases the first letter of a key
	CasePascal CaseConvention = "pascal"
)

// ParseCaseConvention converts a configuration string into a CaseConvention.
func ParseCaseConvention(s string) (CaseConvention, error) {
	switch c := CaseConvention(strings.ToLower(s)); c {
	case CaseVerbatim, CaseCamel, CasePascal:
		return c, nil
	case "":
		return CaseVerbatim, nil
	default:
		return "", fmt.Errorf("invalid case convention %q. must be one of verbatim, camel, pascal", s)
	}
}

// Apply re-cases a single key.
func (c CaseConvention) Apply(key string) string {
	r, size := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError {
		return key
	}
	switch c {
	case CaseCamel:
		return string(unicode.ToLower(r)) + key[size:]
	case CasePascal:
		return string(unicode.ToUpper(r)) + key[size:]
	default:
		return key
	}
}

// --------------------------------------------------------------------------
// Key Case Transform
// --------------------------------------------------------------------------

// ReservedKeys matches protocol reserved keys (e.g. @metadata, @id) which are never re-cased.
var ReservedKeys = regexp.MustCompile(`^@`)

// MetadataSubtree matches the location of a document's @metadata object.
var MetadataSubtree = regexp.MustCompile(`(^|\.)@metadata$`)

// PathRule overrides the convention for keys whose location matches Pattern.
type PathRule struct {
	Pattern    *regexp.Regexp
	Convention CaseConvention
}

// KeyCaseOptions configures how object keys are re-cased.
//
// The location of a key is the dotted list of the original (untransformed) keys
// leading to it, relative to the transformed value. Array indices are not part of
// a location, so "Results.Name" addresses the Name key of every element of Results.
type KeyCaseOptions struct {
	// Default is used for every key no rule matches
	Default CaseConvention
	// Paths are checked in order, the first rule matching the location wins
	Paths []PathRule
	// IgnoreKeys keeps matching keys verbatim, their values are still transformed
	IgnoreKeys []*regexp.Regexp
	// IgnorePaths keeps matching keys and everything below them verbatim
	IgnorePaths []*regexp.Regexp
}

// DocumentKeyCase returns the options used for documents: the given convention,
// reserved keys and the @metadata subtree untouched.
func DocumentKeyCase(convention CaseConvention) *KeyCaseOptions {
	return &KeyCaseOptions{
		Default:     convention,
		IgnoreKeys:  []*regexp.Regexp{ReservedKeys},
		IgnorePaths: []*regexp.Regexp{MetadataSubtree},
	}
}

// Transform returns a copy of v with all object keys re-cased.
// Values that are neither objects nor arrays are returned as is.
func (o *KeyCaseOptions) Transform(v any) any {
	return o.transform(v, "")
}

func (o *KeyCaseOptions) transform(v any, parent string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, child := range t {
			location := key
			if parent != "" {
				location = parent + "." + key
			}
			if matchAny(o.IgnorePaths, location) {
				out[key] = child
				continue
			}
			newKey := key
			if !matchAny(o.IgnoreKeys, key) {
				newKey = o.conventionFor(location).Apply(key)
			}
			out[newKey] = o.transform(child, location)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = o.transform(child, parent)
		}
		return out
	default:
		return v
	}
}

// conventionFor returns the convention of the first rule matching location
func (o *KeyCaseOptions) conventionFor(location string) CaseConvention {
	for _, rule := range o.Paths {
		if rule.Pattern.MatchString(location) {
			return rule.Convention
		}
	}
	return o.Default
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
