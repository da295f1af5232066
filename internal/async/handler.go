// internal/async/handler.go
package async

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeout is the rejection reason for a promise whose timeout fired before
// it was resolved. Callers treat this as "no response", not as a failure.
var ErrTimeout = errors.New("promise timed out")

// ErrRejected is the constant rejection reason used by RejectRemaining when a
// race has been won by a sibling promise.
var ErrRejected = errors.New("promise rejected")

// ErrUnknownKey is returned by Resolve when the key does not exist (already
// settled, removed, or never created). This signals a programming error in the
// caller, not a recoverable player-facing condition.
var ErrUnknownKey = errors.New("unknown promise key")

// Result is the value a promise is fulfilled with: the action name it was
// created under plus the merged payload data.
type Result struct {
	Action string
	Data   map[string]interface{}
}

type outcome struct {
	res Result
	err error
}

// Promise is a single-consumer, settle-once future. Wait must be called at
// most once; Race consumes the promise for you.
type Promise struct {
	Key string
	ch  chan outcome
}

// Wait blocks until the promise is resolved, rejected, or timed out.
func (p *Promise) Wait() (Result, error) {
	o := <-p.ch
	return o.res, o.err
}

type slot struct {
	action  string
	data    map[string]interface{}
	promise *Promise
	timer   *time.Timer
}

// Handler correlates keyed pending operations (join slots, draw/play options,
// nope windows, sub-choices) with the events that eventually settle them. All
// transitions are guarded by a single mutex; a slot is deleted from the map
// before its outcome is delivered, so resolve and timeout are mutually
// exclusive: whichever takes the slot first wins and the other is a no-op.
type Handler struct {
	mu       sync.Mutex
	slots    map[string]*slot
	counters map[string]int
}

// NewHandler returns an empty Handler.
func NewHandler() *Handler {
	return &Handler{
		slots:    make(map[string]*slot),
		counters: make(map[string]int),
	}
}

// CreatePromise allocates a pending slot for the given action and returns its
// key. The key embeds a per-action monotonic counter to aid debugging. The
// optional data becomes the base payload the promise resolves with. A timeout
// greater than zero schedules an automatic rejection.
func (h *Handler) CreatePromise(action string, data map[string]interface{}, timeout time.Duration) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.counters[action]++
	key := fmt.Sprintf("%s-%d", action, h.counters[action])

	if data == nil {
		data = make(map[string]interface{})
	}
	s := &slot{
		action:  action,
		data:    data,
		promise: &Promise{Key: key, ch: make(chan outcome, 1)},
	}
	h.slots[key] = s

	if timeout > 0 {
		s.timer = time.AfterFunc(timeout, func() {
			h.reject(key, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, key))
		})
	}
	return key
}

// take removes and returns the slot for key, or nil if it no longer exists.
// This is the settle-once guard.
func (h *Handler) take(key string) *slot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.slots[key]
	delete(h.slots, key)
	return s
}

// Resolve fulfils the promise stored under key. extra is shallow-merged into
// the slot's payload data, overriding same-named fields. Resolving a key that
// no longer exists returns ErrUnknownKey.
func (h *Handler) Resolve(key string, extra map[string]interface{}) error {
	s := h.take(key)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	for k, v := range extra {
		s.data[k] = v
	}
	s.promise.ch <- outcome{res: Result{Action: s.action, Data: s.data}}
	return nil
}

// reject settles the promise with an error. Missing keys are ignored.
func (h *Handler) reject(key string, reason error) {
	s := h.take(key)
	if s == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.promise.ch <- outcome{err: reason}
}

// GetPromise returns the pending promise for key, or nil if it has already
// settled or never existed.
func (h *Handler) GetPromise(key string) *Promise {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.slots[key]
	if s == nil {
		return nil
	}
	return s.promise
}

// GetPromises returns the pending promises for the given keys, silently
// dropping keys that no longer exist.
func (h *Handler) GetPromises(keys []string) []*Promise {
	h.mu.Lock()
	defer h.mu.Unlock()
	promises := make([]*Promise, 0, len(keys))
	for _, key := range keys {
		if s := h.slots[key]; s != nil {
			promises = append(promises, s.promise)
		}
	}
	return promises
}

// RemovePromise discards a pending slot without settling it. Removing a key
// that no longer exists is a no-op.
func (h *Handler) RemovePromise(key string) {
	s := h.take(key)
	if s != nil && s.timer != nil {
		s.timer.Stop()
	}
}

// RejectRemaining rejects every still-pending key in the list with ErrRejected.
// Used to cancel the losing branches once one branch of a race is chosen, so
// their timers are released and late resolutions fail loudly.
func (h *Handler) RejectRemaining(keys []string) {
	for _, key := range keys {
		h.reject(key, ErrRejected)
	}
}

// Pending reports how many slots are currently awaiting settlement.
func (h *Handler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.slots)
}

// Settled pairs a finished promise with its outcome.
type Settled struct {
	Key    string
	Result Result
	Err    error
}

// Race waits for the first of the given promises to resolve successfully and
// returns it. If every promise settles with an error (timeouts, rejections),
// the last error outcome is returned instead. Losing promises must still be
// settled by the caller (RejectRemaining) so their forwarding goroutines can
// drain into the buffered aggregate channel and exit.
func Race(promises ...*Promise) Settled {
	agg := make(chan Settled, len(promises))
	for _, p := range promises {
		go func(p *Promise) {
			res, err := p.Wait()
			agg <- Settled{Key: p.Key, Result: res, Err: err}
		}(p)
	}
	var last Settled
	for range promises {
		last = <-agg
		if last.Err == nil {
			return last
		}
	}
	return last
}
