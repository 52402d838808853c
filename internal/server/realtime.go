package server

import (
	"context"
	"sync"
	"time"
)

const (
	ActivityEventItineraryChanged = "itinerary-change"
	activityEventHeartbeat        = "heartbeat"
	activitySourceBackend         = "tripweave-backend"
)

// ActivityMessage describes one itinerary change fanned out to a trip's
// connected members.
type ActivityMessage struct {
	TripID    string
	EventType string
	ItemIDs   []string
	ActorID   string
	Timestamp time.Time
}

// ActivityDispatcher fans trip activity out to per-trip SSE subscribers.
// Slow subscribers are skipped rather than blocking the publisher.
type ActivityDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*activitySubscriber
	nextID      int64
	bufferSize  int
}

type activitySubscriber struct {
	id     int64
	stream chan ActivityMessage
}

// NewActivityDispatcher constructs an empty dispatcher.
func NewActivityDispatcher() *ActivityDispatcher {
	return &ActivityDispatcher{
		subscribers: make(map[string]map[int64]*activitySubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a listener for one trip's activity. The returned
// cleanup is also invoked automatically when the context ends.
func (d *ActivityDispatcher) Subscribe(ctx context.Context, tripID string) (<-chan ActivityMessage, func()) {
	if tripID == "" {
		ch := make(chan ActivityMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &activitySubscriber{
		id:     d.nextSequence(),
		stream: make(chan ActivityMessage, d.bufferSize),
	}
	d.registerSubscriber(tripID, subscriber)
	cleanup := func() {
		d.unregisterSubscriber(tripID, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers a message to every subscriber of the message's trip.
func (d *ActivityDispatcher) Publish(message ActivityMessage) {
	if message.TripID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.TripID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*activitySubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

func (d *ActivityDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *ActivityDispatcher) registerSubscriber(tripID string, subscriber *activitySubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[tripID]; !ok {
		d.subscribers[tripID] = make(map[int64]*activitySubscriber)
	}
	d.subscribers[tripID][subscriber.id] = subscriber
}

func (d *ActivityDispatcher) unregisterSubscriber(tripID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[tripID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, tripID)
		}
	}
	d.mu.Unlock()
}
