// Package lazy defers reads until they are needed and executes all deferred reads
// of a session in as few round trips as possible.
//
// Key Components:
//
//   - Operation: The contract of a deferred read. CreateRequest builds the
//     sub-request (and is called again on every retry), HandleResponse consumes the
//     sub-response and decides whether the read has to be retried.
//
//   - LoadOperation, StartsWithOperation, QueryOperation: Point/bulk loads by id,
//     prefix scans and queries. Loads return a DocumentSet aligned with the requested
//     ids (a missing document is a nil slot), queries a QueryResult whose statistics are
//     revived with the mapping package.
//
//   - Future: One-shot handle of a lazy value. Value flushes the scheduler if needed,
//     OnResolved registers observers, they run once the flush is done.
//
//   - Scheduler: Queues operations and flushes them through an IExecutor (the batch
//     command). One flush is one outer call per pass; operations requiring a retry are
//     sent again in the next pass, at most Options.MaxRetries times.
//
// Failures:
//
//	A failed pass rejects every operation of the flush that is still unresolved: the
//	error of the executor, a ResponseParsing error of any operation or a
//	SubRequestFailed error for a sub-response with an error status. Retries that never
//	converge end with a RetryLimitExceeded error.
//
// Usage Example:
//
//	s := lazy.NewScheduler(multiGetCommand, lazy.Options{})
//	user := s.Load([]string{"users/1"})
//	stats := s.Query(&lazy.IndexQuery{Query: "from Users"})
//
//	// one round trip for both
//	set, err := user.Value(ctx)
package lazy
