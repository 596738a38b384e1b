package events

import (
	"context"
	"log/slog"
	"sync"
)

// MoveEvent is published after a committed structural move. Consumers run
// asynchronously and must not assume the originating transaction is still
// open.
type MoveEvent struct {
	NodeID   uint
	TargetID *uint
	Position string
}

type Operation struct {
	op  int
	sub *Subscriber
	evt *MoveEvent
}

const (
	opSubscribe = iota
	opUnsubscribe
	opSend
)

// EventManager fans committed move events out to registered subscribers.
// Delivery is at least once: every subscriber owns an unbounded pending
// queue drained by its own pump goroutine, so a slow consumer delays only
// itself and never loses events.
type EventManager struct {
	subs []*Subscriber

	ops        chan *Operation
	bufferSize int

	log *slog.Logger
}

func NewEventManager() *EventManager {
	return &EventManager{
		ops:        make(chan *Operation),
		bufferSize: 1024,
		log:        slog.Default().With("system", "events"),
	}
}

func (em *EventManager) Run() {
	for op := range em.ops {
		switch op.op {
		case opSubscribe:
			em.subs = append(em.subs, op.sub)
		case opUnsubscribe:
			for i, s := range em.subs {
				if s == op.sub {
					em.subs[i] = em.subs[len(em.subs)-1]
					em.subs = em.subs[:len(em.subs)-1]
					close(s.done)
					break
				}
			}
		case opSend:
			for _, s := range em.subs {
				s.enqueue(op.evt)
			}
		default:
			em.log.Error("unrecognized eventmgr operation", "op", op.op)
		}
	}

	for _, s := range em.subs {
		close(s.done)
	}
}

func (em *EventManager) Shutdown() {
	close(em.ops)
}

// Subscriber sits between the manager and one consumer channel. enqueue
// never blocks the manager loop; the pump hands events to the consumer in
// publication order and parks while it catches up.
type Subscriber struct {
	outgoing chan *MoveEvent

	mu      sync.Mutex
	pending []*MoveEvent
	wake    chan struct{}
	done    chan struct{}
}

func (s *Subscriber) enqueue(evt *MoveEvent) {
	s.mu.Lock()
	s.pending = append(s.pending, evt)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscriber) pump() {
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, evt := range batch {
			select {
			case s.outgoing <- evt:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

func (em *EventManager) AddEvent(ctx context.Context, evt *MoveEvent) error {
	select {
	case em.ops <- &Operation{op: opSend, evt: evt}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a consumer and returns its event channel. The
// cancel func must be called before the manager shuts down.
func (em *EventManager) Subscribe(ctx context.Context) (<-chan *MoveEvent, func(), error) {
	sub := &Subscriber{
		outgoing: make(chan *MoveEvent, em.bufferSize),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	select {
	case em.ops <- &Operation{op: opSubscribe, sub: sub}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	go sub.pump()

	cancel := func() {
		em.ops <- &Operation{op: opUnsubscribe, sub: sub}
	}

	return sub.outgoing, cancel, nil
}
