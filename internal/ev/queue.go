// Package ev provides the queue that feeds the compositor's event
// loop.
package ev

import (
	"errors"

	"deedles.dev/xsync"
)

// Queue collects closures from any goroutine for execution on the
// loop goroutine. The zero value is ready to use.
type Queue struct {
	q    xsync.Queue[func() error]
	stop xsync.Stopper
}

// Post queues ev. It blocks only until the queue accepts the value
// and reports false if the queue has been stopped.
func (q *Queue) Post(ev func() error) bool {
	select {
	case <-q.stop.Done():
		return false
	case q.q.Push() <- ev:
		return true
	}
}

// Get returns a channel that yields queued closures in order.
func (q *Queue) Get() <-chan func() error {
	return q.q.Pop()
}

// Done is closed once Stop has been called.
func (q *Queue) Done() <-chan struct{} {
	return q.stop.Done()
}

// Stop causes future calls to Post to fail. Closures that were
// already queued remain available from Get.
func (q *Queue) Stop() {
	q.stop.Stop()
}

// Drain collects first and every closure that is immediately
// available behind it.
func (q *Queue) Drain(first func() error) *Events {
	events := []func() error{first}
	for {
		select {
		case ev, ok := <-q.Get():
			if !ok || ev == nil {
				return &Events{events: events}
			}
			events = append(events, ev)
		default:
			return &Events{events: events}
		}
	}
}

// Events represents a batch of closures taken from a Queue.
type Events struct {
	events []func() error
}

// Len returns the number of closures in the batch.
func (q *Events) Len() int {
	return len(q.events)
}

// Flush processess all of the events represented by q.
func (q *Events) Flush() error {
	return errors.Join(Flush(q)...)
}

func Flush(queue *Events) (errs []error) {
	for _, ev := range queue.events {
		err := ev()
		if err != nil {
			errs = append(errs, err)
		}
	}
	queue.events = nil
	return errs
}
