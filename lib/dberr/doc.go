// Package dberr defines the error taxonomy shared by the request layer.
//
// Every error produced by the pipeline, the batch command and the lazy scheduler
// is an *Error carrying a Code. Callers test for a class of failure with the
// exported sentinels:
//
//	if errors.Is(err, dberr.ErrCacheInconsistency) {
//		// a not-modified sub-response arrived for a key that is not cached
//	}
//
// A lazy operation asking for a retry is not an error and never surfaces here,
// unless the retries do not converge (ErrRetryLimitExceeded).
package dberr
