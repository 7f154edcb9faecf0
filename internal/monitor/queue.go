package monitor

import "context"

// Queue is the single ordered channel between collectors and the consumer.
// Alerts from one producer stay in push order; producers are not ordered against each other.
type Queue struct {
	ch chan Alert
}

// NewQueue creates a queue buffering up to size alerts
func NewQueue(size int) *Queue {
	if size < 0 {
		size = 0
	}
	return &Queue{ch: make(chan Alert, size)}
}

// Push blocks until the alert is queued or ctx is done
func (q *Queue) Push(ctx context.Context, a Alert) error {
	select {
	case q.ch <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks until an alert is available or ctx is done
func (q *Queue) Pop(ctx context.Context) (Alert, bool) {
	select {
	case a := <-q.ch:
		return a, true
	case <-ctx.Done():
		return Alert{}, false
	}
}

// TryPop returns a queued alert without blocking
func (q *Queue) TryPop() (Alert, bool) {
	select {
	case a := <-q.ch:
		return a, true
	default:
		return Alert{}, false
	}
}

// Len returns the number of queued alerts
func (q *Queue) Len() int {
	return len(q.ch)
}
