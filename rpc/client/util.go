package client

import (
	"github.com/ValentinKolb/dDoc/lib/cache"
	"github.com/ValentinKolb/dDoc/lib/pipeline"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"regexp"
)

var (
	Logger = logger.GetLogger("batch")
)

var (
	outerCalls       = metrics.NewCounter(`ddoc_batch_outer_calls_total`)
	subRequests      = metrics.NewCounter(`ddoc_batch_sub_requests_total`)
	notModified      = metrics.NewCounter(`ddoc_batch_not_modified_total`)
	failedCalls      = metrics.NewCounter(`ddoc_batch_failed_calls_total`)
	outerCallSeconds = metrics.NewHistogram(`ddoc_batch_outer_call_duration_seconds`)
)

var (
	// includeIDs matches the keys of the Includes object, these are document ids
	includeIDs = regexp.MustCompile(`^Result\.Includes\.[^.]+$`)
	// documentFields matches everything inside the documents of a sub-result
	documentFields = regexp.MustCompile(`^Result\.(Results|Includes)\.`)
)

// envelopeKeyCase returns the key case options of the outer response: the envelope
// stays verbatim, the documents of every sub-result use the entity convention.
func envelopeKeyCase(entity pipeline.CaseConvention) *pipeline.KeyCaseOptions {
	return &pipeline.KeyCaseOptions{
		Default: pipeline.CaseVerbatim,
		Paths: []pipeline.PathRule{
			{Pattern: includeIDs, Convention: pipeline.CaseVerbatim},
			{Pattern: documentFields, Convention: entity},
		},
		IgnoreKeys:  []*regexp.Regexp{pipeline.ReservedKeys},
		IgnorePaths: []*regexp.Regexp{pipeline.MetadataSubtree},
	}
}

// cacheKey is the cache key of a sub-request. Payloads are cached after re-casing,
// so every convention other than verbatim gets its own key space.
func cacheKey(method, absoluteURL string, convention pipeline.CaseConvention) string {
	key := cache.Key(method, absoluteURL)
	if convention != pipeline.CaseVerbatim {
		key += "#" + string(convention)
	}
	return key
}
