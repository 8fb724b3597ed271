package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// QueuedCommand is a command that arrived before readiness. Payload is kept
// verbatim.
type QueuedCommand struct {
	Type       string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

type commandQueue struct {
	mu    sync.Mutex
	items []QueuedCommand
}

func (q *commandQueue) push(cmd QueuedCommand) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, cmd)
}

// drain removes and returns every queued command in arrival order.
func (q *commandQueue) drain() []QueuedCommand {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// lane runs submitted jobs one at a time in submission order. Every mutating
// command goes through it, so two imports never interleave their ingestion
// calls regardless of readiness.
type lane struct {
	mu   sync.Mutex
	jobs []func(context.Context)
	wake chan struct{}
}

func newLane() *lane {
	return &lane{wake: make(chan struct{}, 1)}
}

// submit never blocks the caller.
func (l *lane) submit(job func(context.Context)) {
	l.mu.Lock()
	l.jobs = append(l.jobs, job)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *lane) next() (func(context.Context), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.jobs) == 0 {
		return nil, false
	}
	job := l.jobs[0]
	l.jobs[0] = nil
	l.jobs = l.jobs[1:]
	return job, true
}

// run processes jobs until ctx is done. Jobs still queued at that point are
// dropped.
func (l *lane) run(ctx context.Context) {
	for {
		for {
			if ctx.Err() != nil {
				return
			}
			job, ok := l.next()
			if !ok {
				break
			}
			job(ctx)
		}
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}
