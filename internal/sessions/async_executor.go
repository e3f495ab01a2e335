package sessions

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strrl/dw/pkg/models"
)

// LoadingState represents the state of an async operation
type LoadingState int

const (
	StateIdle LoadingState = iota
	StateLoadingReport
	StateCancelling
	StateError
)

// DefaultQueryTimeout bounds a single report query
const DefaultQueryTimeout = 30 * time.Second

// ReportRequest is a report query waiting to be executed
type ReportRequest struct {
	Query     ReportQuery
	RequestID string
	Context   context.Context
	result    chan ReportResult
}

// ReportResult is the outcome of a ReportRequest
type ReportResult struct {
	RequestID string
	Rows      []models.ReportRow
	Error     error
}

// AsyncExecutor runs report queries one at a time on a background goroutine
type AsyncExecutor struct {
	db        *sql.DB
	requests  chan ReportRequest
	done      chan struct{}
	timeout   time.Duration
	logger    zerolog.Logger
	mu        sync.RWMutex
	contexts  map[string]context.CancelFunc
	sendMu    sync.RWMutex // guards closed against in-flight sends
	closed    bool
	closeOnce sync.Once
}

// NewAsyncExecutor creates a new async executor
func NewAsyncExecutor(db *sql.DB, logger zerolog.Logger) *AsyncExecutor {
	return &AsyncExecutor{
		db:       db,
		requests: make(chan ReportRequest, 10),
		done:     make(chan struct{}),
		timeout:  DefaultQueryTimeout,
		logger:   logger,
		contexts: make(map[string]context.CancelFunc),
	}
}

// Start begins processing requests
func (e *AsyncExecutor) Start() {
	go e.processRequests()
}

// Close shuts down the executor and cancels running requests.
// Queued requests that never ran are answered with context.Canceled.
func (e *AsyncExecutor) Close() {
	e.closeOnce.Do(func() {
		e.sendMu.Lock()
		e.closed = true
		e.sendMu.Unlock()

		e.mu.Lock()
		close(e.done)
		for _, cancel := range e.contexts {
			cancel()
		}
		e.mu.Unlock()
	})
}

// processRequests handles incoming requests until Close
func (e *AsyncExecutor) processRequests() {
	for {
		select {
		case req := <-e.requests:
			e.handleRequest(req)
		case <-e.done:
			e.drain()
			return
		}
	}
}

func (e *AsyncExecutor) drain() {
	for {
		select {
		case req := <-e.requests:
			e.forget(req.RequestID)
			req.result <- ReportResult{RequestID: req.RequestID, Error: context.Canceled}
		default:
			return
		}
	}
}

// handleRequest runs a single request and delivers its result
func (e *AsyncExecutor) handleRequest(req ReportRequest) {
	ctx, cancel := context.WithTimeout(req.Context, e.timeout)
	defer cancel()
	defer e.forget(req.RequestID)

	started := time.Now()
	rows, err := FetchReport(ctx, e.db, req.Query)
	if err != nil && ctx.Err() != nil {
		// report cancellation rather than the driver's wrapped error
		err = ctx.Err()
	}

	e.logger.Debug().
		Str("request_id", req.RequestID).
		Str("group_by", string(req.Query.GroupBy)).
		Dur("took", time.Since(started)).
		Err(err).
		Msg("report query finished")

	// result is buffered, this never blocks
	req.result <- ReportResult{RequestID: req.RequestID, Rows: rows, Error: err}
}

// forget releases the cancel function registered for requestID
func (e *AsyncExecutor) forget(requestID string) {
	e.mu.Lock()
	cancel, ok := e.contexts[requestID]
	delete(e.contexts, requestID)
	e.mu.Unlock()

	if ok {
		cancel()
	}
}

// Submit queues q and returns its request ID and a channel that receives
// exactly one result. It returns an empty ID and nil channel once closed.
func (e *AsyncExecutor) Submit(ctx context.Context, q ReportQuery) (string, <-chan ReportResult) {
	reqCtx, cancel := context.WithCancel(ctx)
	req := ReportRequest{
		Query:     q,
		RequestID: uuid.New().String(),
		Context:   reqCtx,
		result:    make(chan ReportResult, 1),
	}

	e.sendMu.RLock()
	defer e.sendMu.RUnlock()
	if e.closed {
		cancel()
		return "", nil
	}

	// registered up front so queued requests can be cancelled too
	e.mu.Lock()
	e.contexts[req.RequestID] = cancel
	e.mu.Unlock()

	select {
	case e.requests <- req:
		return req.RequestID, req.result
	case <-ctx.Done():
		e.forget(req.RequestID)
		return "", nil
	}
}

// Cancel cancels a specific queued or running request
func (e *AsyncExecutor) Cancel(requestID string) {
	e.mu.RLock()
	cancel, ok := e.contexts[requestID]
	e.mu.RUnlock()

	if ok {
		cancel()
	}
}

// CancelAll cancels all queued and running requests
func (e *AsyncExecutor) CancelAll() {
	e.mu.RLock()
	cancels := make([]context.CancelFunc, 0, len(e.contexts))
	for _, cancel := range e.contexts {
		cancels = append(cancels, cancel)
	}
	e.mu.RUnlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// ExecuteReportQueryAsync runs q on its own goroutine with a timeout
func ExecuteReportQueryAsync(ctx context.Context, db *sql.DB, q ReportQuery) <-chan ReportResult {
	resultChan := make(chan ReportResult, 1)

	go func() {
		defer close(resultChan)

		// Add timeout to prevent hanging
		queryCtx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
		defer cancel()

		rows, err := FetchReport(queryCtx, db, q)
		select {
		case resultChan <- ReportResult{Rows: rows, Error: err}:
		case <-ctx.Done():
		}
	}()

	return resultChan
}
