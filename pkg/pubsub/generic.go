package pubsub

import (
	"sync"

	"f1consistencybot/pkg/model"
)

const TopicRacePublished = "race_published"

// RacePublishedPubSub fans out races whose lap data became available.
var RacePublishedPubSub = NewPubSub[model.RacePublished]()

type PubSub[T any] struct {
	mu     sync.Mutex
	subs   map[string][]chan T
	closed bool
}

func NewPubSub[T any]() *PubSub[T] {
	return &PubSub[T]{
		subs: make(map[string][]chan T),
	}
}

// Subscribe returns a channel receiving every message of topic. It is closed by Close.
func (ps *PubSub[T]) Subscribe(topic string) <-chan T {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ch := make(chan T, 1)
	if ps.closed {
		close(ch)
		return ch
	}
	ps.subs[topic] = append(ps.subs[topic], ch)
	return ch
}

// Publish delivers data to every subscriber of topic, waiting for slow readers.
func (ps *PubSub[T]) Publish(topic string, data T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return
	}
	for _, ch := range ps.subs[topic] {
		ch <- data
	}
}

func (ps *PubSub[T]) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return
	}
	ps.closed = true
	for _, subs := range ps.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
}
