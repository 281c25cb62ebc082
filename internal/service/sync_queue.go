package service

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/marketkit/marketkit/internal/api"
	"github.com/marketkit/marketkit/internal/metrics"
)

// opKind identifies the outbound cart write an op performs.
type opKind string

const (
	opSave   opKind = "save"   // POST /cart full replacement
	opPatch  opKind = "patch"  // PATCH /cart/:productId quantity
	opDelete opKind = "delete" // DELETE /cart/:productId
)

// syncOp is one queued outbound cart write.
type syncOp struct {
	kind      opKind
	productID string          // patch/delete
	quantity  int             // patch
	entries   []api.CartEntry // save: snapshot of the full cart at enqueue time
	cartIDs   []string        // line items whose sync state this op settles
}

// SyncQueue serializes outbound cart writes through a single background
// worker, so overlapping mutations reach the server in enqueue order
// (last-issued-mutation-wins). Sends never block the mutation path: when
// the buffer is full the op is dropped and counted. Every write is
// best-effort; failures are logged and reported through the result
// callback, never propagated.
type SyncQueue struct {
	client  *api.Client
	ops     chan syncOp
	wg      sync.WaitGroup
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger

	// onResult is invoked from the worker after each op completes.
	onResult func(op syncOp, err error)

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// SyncQueueOption configures a SyncQueue.
type SyncQueueOption func(*SyncQueue)

// WithQueueSize sets the op buffer size. Default 64; non-positive sizes
// keep the default.
func WithQueueSize(size int) SyncQueueOption {
	return func(q *SyncQueue) {
		if size > 0 {
			q.ops = make(chan syncOp, size)
		}
	}
}

// WithWriteRate paces outbound writes to at most rps per second with the
// given burst. Zero rps disables pacing.
func WithWriteRate(rps float64, burst int) SyncQueueOption {
	return func(q *SyncQueue) {
		if rps > 0 {
			q.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithResultFunc sets the per-op completion callback.
func WithResultFunc(fn func(op syncOp, err error)) SyncQueueOption {
	return func(q *SyncQueue) {
		q.onResult = fn
	}
}

// NewSyncQueue creates a queue writing through client.
func NewSyncQueue(client *api.Client, m *metrics.Metrics, logger *slog.Logger, opts ...SyncQueueOption) *SyncQueue {
	q := &SyncQueue{
		client:  client,
		ops:     make(chan syncOp, 64),
		metrics: m,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start begins the background worker. ctx bounds the individual HTTP calls;
// canceling it does not discard queued ops, it just fails them fast.
func (q *SyncQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.worker(ctx)
}

// Enqueue submits an op without blocking. Returns false when the op was
// dropped because the buffer is full or the queue is closed.
func (q *SyncQueue) Enqueue(op syncOp) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ops <- op:
		return true
	default:
		q.metrics.CartSyncDropsTotal.Inc()
		q.logger.Warn("sync queue full, dropping cart write", "op", string(op.kind))
		return false
	}
}

// Close stops accepting ops, drains the buffer, and waits for the worker.
// Idempotent. One-shot callers use this to flush before exit.
func (q *SyncQueue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.ops)
		q.mu.Unlock()
		q.wg.Wait()
	})
}

// Depth returns the number of ops currently buffered.
func (q *SyncQueue) Depth() int {
	return len(q.ops)
}

func (q *SyncQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for op := range q.ops {
		if q.limiter != nil {
			if err := q.limiter.Wait(ctx); err != nil {
				// Context canceled: execute without pacing so queued
				// ops still settle their sync state.
				q.logger.Debug("write pacing aborted", "error", err)
			}
		}
		err := q.execute(ctx, op)
		result := "ok"
		if err != nil {
			result = "error"
			q.logger.Warn("cart write failed, local state stands",
				"op", string(op.kind), "error", err)
		}
		q.metrics.CartSyncTotal.WithLabelValues(string(op.kind), result).Inc()
		if q.onResult != nil {
			q.onResult(op, err)
		}
	}
}

func (q *SyncQueue) execute(ctx context.Context, op syncOp) error {
	switch op.kind {
	case opSave:
		return q.client.ReplaceCart(ctx, op.entries)
	case opPatch:
		return q.client.UpdateCartItem(ctx, op.productID, op.quantity)
	case opDelete:
		return q.client.RemoveCartItem(ctx, op.productID)
	}
	return nil
}
