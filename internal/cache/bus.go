package cache

import (
	"sync"

	"go.uber.org/zap"
)

// Event is delivered to subscribers after a slice was replaced.
type Event struct {
	Topic   string
	Slice   Slice
	Cycle   uint64
	Payload Payload
}

type Handler func(Event)

// Token identifies one subscription; pass it to Unsubscribe.
type Token uint64

type subscription struct {
	token   Token
	handler Handler
}

type bus struct {
	log *zap.Logger

	mu     sync.RWMutex
	next   Token
	topics map[string][]subscription
	owner  map[Token]string
}

func newBus(log *zap.Logger) *bus {
	return &bus{
		log:    log,
		topics: make(map[string][]subscription),
		owner:  make(map[Token]string),
	}
}

func (b *bus) subscribe(topic string, h Handler) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	tok := b.next
	b.topics[topic] = append(b.topics[topic], subscription{token: tok, handler: h})
	b.owner[tok] = topic
	return tok
}

func (b *bus) unsubscribe(tok Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, ok := b.owner[tok]
	if !ok {
		return false
	}
	delete(b.owner, tok)

	subs := b.topics[topic]
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.token != tok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		delete(b.topics, topic)
	} else {
		b.topics[topic] = out
	}
	return true
}

// publish calls the handlers registered for ev.Topic at the time of the call, in registration order.
func (b *bus) publish(ev Event) {
	b.mu.RLock()
	subs := b.topics[ev.Topic]
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, ev)
	}
}

func (b *bus) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("subscriber panicked",
				zap.String("topic", ev.Topic),
				zap.Uint64("token", uint64(s.token)),
				zap.Any("panic", r),
			)
		}
	}()
	s.handler(ev)
}

func (b *bus) count(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
