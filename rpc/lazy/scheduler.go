package lazy

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"github.com/ValentinKolb/dDoc/lib/mapping"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/google/uuid"
	"github.com/rcrowley/go-metrics"
	"sync"
	"time"
)

// DefaultMaxRetries bounds the retry passes of a flush if nothing else is configured
const DefaultMaxRetries = 8

// IExecutor sends one batch of sub-requests and returns the responses aligned
// with the requests (implemented by client.MultiGetCommand).
type IExecutor interface {
	Execute(ctx context.Context, requests []*common.GetRequest) ([]*common.GetResponse, error)
}

// Options configures a Scheduler
type Options struct {
	// MaxRetries is the number of retry passes a flush may do after the first pass
	MaxRetries int
	// Reviver is used by query operations, nil selects the default reviver
	Reviver mapping.IReviver
}

// pendingOp is a queued operation with the function resolving its future.
// resolve returns the notification of the future's observers.
type pendingOp struct {
	op      Operation
	resolve func(err error) func()
}

// Scheduler collects lazy operations and executes them in one batch per flush.
// It is bound to one session and safe for concurrent use.
type Scheduler struct {
	id         string
	executor   IExecutor
	maxRetries int
	reviver    mapping.IReviver

	mu      sync.Mutex
	pending []*pendingOp

	// flushMu serializes flushes
	flushMu sync.Mutex

	registry  metrics.Registry
	flushes   metrics.Counter
	passes    metrics.Counter
	retries   metrics.Counter
	failures  metrics.Counter
	batchSize metrics.Histogram
	latency   metrics.Timer
}

// NewScheduler creates a new scheduler executing its batches with executor
func NewScheduler(executor IExecutor, opts Options) *Scheduler {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Reviver == nil {
		opts.Reviver = mapping.NewReviver()
	}

	registry := metrics.NewRegistry()
	return &Scheduler{
		id:         uuid.NewString(),
		executor:   executor,
		maxRetries: opts.MaxRetries,
		reviver:    opts.Reviver,
		registry:   registry,
		flushes:    metrics.NewRegisteredCounter("flushes", registry),
		passes:     metrics.NewRegisteredCounter("passes", registry),
		retries:    metrics.NewRegisteredCounter("retries", registry),
		failures:   metrics.NewRegisteredCounter("failures", registry),
		batchSize:  metrics.NewRegisteredHistogram("batch_size", registry, metrics.NewUniformSample(1028)),
		latency:    metrics.NewRegisteredTimer("pass_latency", registry),
	}
}

// ID returns the id of the scheduler used in logs
func (s *Scheduler) ID() string {
	return s.id
}

// Pending returns the number of queued operations
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stats returns a snapshot of the statistics of this scheduler
// (flushes, passes, retries, failures, batch_size, pass_latency).
func (s *Scheduler) Stats() map[string]map[string]any {
	return s.registry.GetAll()
}

// --------------------------------------------------------------------------
// Enqueue
// --------------------------------------------------------------------------

// Enqueue queues op and returns the future of its result. convert turns the resolved
// operation into the value of the future, nil uses op.Result() as T.
func Enqueue[T any](s *Scheduler, op Operation, convert func(Operation) (T, error)) *Future[T] {
	if convert == nil {
		convert = resultAs[T]
	}

	f := newFuture[T](s)
	p := &pendingOp{
		op: op,
		resolve: func(err error) func() {
			if err != nil {
				var zero T
				return f.resolve(zero, err)
			}
			return f.resolve(convert(op))
		},
	}

	s.mu.Lock()
	s.pending = append(s.pending, p)
	s.mu.Unlock()
	return f
}

// Load queues a load of the given ids
func (s *Scheduler) Load(ids []string, includes ...string) *Future[*DocumentSet] {
	op, err := NewLoadOperation(ids, includes...)
	if err != nil {
		return rejected[*DocumentSet](s, err)
	}
	return Enqueue[*DocumentSet](s, op, nil)
}

// LoadStartingWith queues a prefix scan, opts may be nil
func (s *Scheduler) LoadStartingWith(prefix string, opts *StartsWithOptions) *Future[*DocumentSet] {
	return Enqueue[*DocumentSet](s, NewStartsWithOperation(prefix, opts), nil)
}

// Query queues a query
func (s *Scheduler) Query(query *IndexQuery) *Future[*QueryResult] {
	op, err := NewQueryOperation(query, s.reviver)
	if err != nil {
		return rejected[*QueryResult](s, err)
	}
	return Enqueue[*QueryResult](s, op, nil)
}

// --------------------------------------------------------------------------
// Flush
// --------------------------------------------------------------------------

// Flush executes all queued operations. Every pass sends one batch, operations
// requiring a retry are sent again in the next pass until none is left.
//
// If a pass fails, all operations of the flush that are not resolved yet are
// rejected with the error, which is also returned.
//
// Observers registered with OnResolved run after the flush released its lock,
// so they may queue and read further lazy values.
func (s *Scheduler) Flush(ctx context.Context) error {
	notify, err := s.flush(ctx)
	for _, fn := range notify {
		fn()
	}
	return err
}

// flush runs the passes and returns the observer notifications of all resolved futures
func (s *Scheduler) flush(ctx context.Context) (notify []func(), err error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil, nil
	}

	s.flushes.Inc(1)
	Logger.Debugf("[%s] flushing %d lazy operations", s.id, len(batch))

	for pass := 0; len(batch) > 0; pass++ {
		if pass > s.maxRetries {
			err := dberr.New(dberr.CodeRetryLimitExceeded, "%d operations still require a retry after %d passes", len(batch), pass)
			return append(notify, s.reject(batch, err)...), err
		}
		if pass > 0 {
			s.retries.Inc(1)
			Logger.Warningf("[%s] retry pass %d for %d lazy operations", s.id, pass, len(batch))
		}

		retry, resolved, err := s.execute(ctx, batch)
		if err != nil {
			return append(notify, s.reject(batch, err)...), err
		}
		notify = append(notify, resolved...)
		batch = retry
	}

	return notify, nil
}

// execute runs one pass and returns the operations requiring a retry together
// with the notifications of the resolved ones
func (s *Scheduler) execute(ctx context.Context, batch []*pendingOp) ([]*pendingOp, []func(), error) {
	start := time.Now()
	s.passes.Inc(1)
	s.batchSize.Update(int64(len(batch)))

	requests := make([]*common.GetRequest, len(batch))
	for i, p := range batch {
		requests[i] = p.op.CreateRequest()
	}

	responses, err := s.executor.Execute(ctx, requests)
	if err != nil {
		return nil, nil, err
	}
	if len(responses) != len(requests) {
		return nil, nil, dberr.New(dberr.CodeInvalidResponse, "expected %d responses, got %d", len(requests), len(responses))
	}
	s.latency.UpdateSince(start)

	// a failed sub-request fails the whole batch
	for i, resp := range responses {
		if resp.RequestHasErrors() {
			return nil, nil, &dberr.Error{
				Code: dberr.CodeSubRequestFailed,
				Msg:  fmt.Sprintf("sub-request %s%s failed with status %d", requests[i].URL, requests[i].Query, resp.StatusCode),
				Body: string(resp.Result),
			}
		}
	}

	for i, p := range batch {
		if err := p.op.HandleResponse(ctx, responses[i]); err != nil {
			return nil, nil, err
		}
	}

	var retry []*pendingOp
	var notify []func()
	for _, p := range batch {
		if p.op.RequiresRetry() {
			retry = append(retry, p)
			continue
		}
		notify = append(notify, p.resolve(nil))
	}
	return retry, notify, nil
}

// reject fails all given operations with err
func (s *Scheduler) reject(batch []*pendingOp, err error) []func() {
	s.failures.Inc(1)
	Logger.Warningf("[%s] lazy flush failed for %d operations: %v", s.id, len(batch), err)
	notify := make([]func(), 0, len(batch))
	for _, p := range batch {
		notify = append(notify, p.resolve(err))
	}
	return notify
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// resultAs is the default conversion of a resolved operation
func resultAs[T any](op Operation) (T, error) {
	var zero T
	if op.Result() == nil {
		return zero, nil
	}
	value, ok := op.Result().(T)
	if !ok {
		return zero, dberr.New(dberr.CodeInvalidArgument, "result of type %T cannot be converted to %T", op.Result(), zero)
	}
	return value, nil
}

// rejected returns an already failed future
func rejected[T any](s *Scheduler, err error) *Future[T] {
	f := newFuture[T](s)
	f.resolve(*new(T), err)()
	return f
}
