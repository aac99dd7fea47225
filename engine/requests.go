package engine

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

//go:generate go tool enumer -type=RequestState requests.go

// RequestState is the state of an InferRequest: idle or running. Starting inference
// on an idle request transitions it to running; completion transitions it back.
type RequestState int32

const (
	RequestIdle RequestState = iota
	RequestRunning
)

// Callback is invoked when an asynchronous inference completes, before the request
// returns to the idle state. Use InferRequest.Outputs, Err and Userdata to inspect
// the result.
type Callback func(request *InferRequest)

// InferRequest is a reusable execution request over one Artifact. It can run
// inference synchronously (Infer) or asynchronously (StartAsync followed by Wait).
//
// A request is owned by one caller at a time: its methods must not be called
// concurrently, except that completion bookkeeping (performed internally) is safe
// with respect to Wait and State.
//
// There is no cancellation: once running, the only outcome is completion.
type InferRequest struct {
	artifact Artifact
	queue    *AsyncInferQueue // nil for standalone requests
	id       int

	state    atomic.Int32
	done     chan struct{}
	outputs  []*Buffer
	err      error
	userdata any
	callback Callback
}

// NewInferRequest creates a standalone idle request for the given artifact.
func NewInferRequest(artifact Artifact) *InferRequest {
	return &InferRequest{artifact: artifact}
}

// State returns the current state of the request.
func (r *InferRequest) State() RequestState {
	return RequestState(r.state.Load())
}

// Infer runs the artifact synchronously, blocking until completion.
func (r *InferRequest) Infer(inputs []*Buffer) ([]*Buffer, error) {
	if err := r.StartAsync(inputs, nil); err != nil {
		return nil, err
	}
	return r.Wait()
}

// StartAsync starts inference of the given inputs and returns immediately, without
// waiting for completion. The request transitions to RequestRunning; it returns an
// error if the request is already running.
func (r *InferRequest) StartAsync(inputs []*Buffer, userdata any) error {
	if !r.state.CompareAndSwap(int32(RequestIdle), int32(RequestRunning)) {
		return errors.Errorf("InferRequest is busy (state=%s), Wait() for it before starting new work",
			r.State())
	}
	r.userdata = userdata
	r.done = make(chan struct{})
	go r.run(inputs, r.done)
	return nil
}

// run executes the artifact and performs the completion bookkeeping: results are
// stored, the callback (if any) is invoked, and only then the request is returned
// to the idle state (and to its queue's pool).
func (r *InferRequest) run(inputs []*Buffer, done chan struct{}) {
	r.outputs, r.err = r.artifact.Execute(inputs)
	if r.callback != nil {
		r.callback(r)
	}
	r.state.Store(int32(RequestIdle))
	if r.queue != nil {
		r.queue.idle <- r.id
		r.queue.pending.Done()
	}
	close(done)
}

// Wait blocks until the in-flight inference (if any) completes, and returns its
// outputs and error. On a request that was never started it returns (nil, nil).
func (r *InferRequest) Wait() ([]*Buffer, error) {
	if r.done == nil {
		return nil, nil
	}
	<-r.done
	return r.outputs, r.err
}

// Outputs returns the outputs of the last completed inference. Read-only inspection:
// only meaningful when the request is idle or from within a Callback.
func (r *InferRequest) Outputs() []*Buffer { return r.outputs }

// Err returns the error of the last completed inference, if any. Same read-only
// caveats as Outputs.
func (r *InferRequest) Err() error { return r.err }

// Userdata returns the userdata passed to the StartAsync call that produced the last
// results. Same read-only caveats as Outputs.
func (r *InferRequest) Userdata() any { return r.userdata }

// AsyncInferQueue is a fixed-size pool of reusable InferRequests over one Artifact,
// with synchronization helpers to control the flow of a simple pipeline.
//
// StartAsync claims the next idle request -- blocking until one frees up -- and
// starts it. Completions return requests to the pool.
//
// The pool bookkeeping assumes a single caller mutating it at a time: starting new
// work from one goroutine while another is enumerating requests (Len/At) leaves the
// bookkeeping unreliable. Enumeration is for read-only inspection only.
type AsyncInferQueue struct {
	artifact Artifact
	requests []*InferRequest
	idle     chan int
	pending  sync.WaitGroup
}

// NewAsyncInferQueue creates a pool of numRequests idle requests for the artifact.
func NewAsyncInferQueue(artifact Artifact, numRequests int) (*AsyncInferQueue, error) {
	if artifact == nil {
		return nil, errors.New("NewAsyncInferQueue requires a non-nil artifact")
	}
	if numRequests <= 0 {
		return nil, errors.Errorf("NewAsyncInferQueue requires numRequests > 0, got %d", numRequests)
	}
	q := &AsyncInferQueue{
		artifact: artifact,
		requests: make([]*InferRequest, numRequests),
		idle:     make(chan int, numRequests),
	}
	for ii := range q.requests {
		q.requests[ii] = &InferRequest{artifact: artifact, queue: q, id: ii}
		q.idle <- ii
	}
	return q, nil
}

// Len returns the size of the pool.
func (q *AsyncInferQueue) Len() int { return len(q.requests) }

// At returns the request with the given id, for read-only inspection: mutating
// methods (StartAsync) on a request obtained this way put the queue in an invalid
// state.
func (q *AsyncInferQueue) At(ii int) *InferRequest { return q.requests[ii] }

// SetCallback sets the completion callback on every request in the pool. It must not
// be called while requests are running.
func (q *AsyncInferQueue) SetCallback(callback Callback) {
	for _, r := range q.requests {
		r.callback = callback
	}
}

// StartAsync runs asynchronous inference using the next available request from the
// pool. It blocks until a request is idle, but not for the inference itself.
func (q *AsyncInferQueue) StartAsync(inputs []*Buffer, userdata any) error {
	id := <-q.idle
	q.pending.Add(1)
	if err := q.requests[id].StartAsync(inputs, userdata); err != nil {
		// The claimed request was idle, so this is a bookkeeping failure.
		q.pending.Done()
		q.idle <- id
		return errors.WithMessagef(err, "AsyncInferQueue claimed request #%d but could not start it", id)
	}
	return nil
}

// WaitAll blocks until every request started through the queue has completed.
func (q *AsyncInferQueue) WaitAll() {
	q.pending.Wait()
}
