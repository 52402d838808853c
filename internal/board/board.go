// Package board holds the client-local planning-board state: the itinerary
// snapshot a single viewer is looking at, with optimistic vote application
// and whole-board rollback when the backing call fails.
package board

import (
	"context"
	"errors"
	"strings"

	"github.com/tripweave/tripweave/backend/internal/itinerary"
)

// Actor identifies the viewer driving the board. The zero value is an
// anonymous viewer who may browse but not vote.
type Actor struct {
	UserID string
}

// Authenticated reports whether the actor carries a signed-in identity.
func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.UserID) != ""
}

// Caster persists a vote click. An empty direction signals an explicit
// un-vote for callers that precompute the toggle-off; this board always sends
// the clicked direction and lets the backend infer toggle semantics, which
// matches the transition table it applies locally.
type Caster interface {
	CastVote(ctx context.Context, tripID, itemID string, direction itinerary.Direction) error
}

// NoticeKind classifies a user-visible notification.
type NoticeKind string

const (
	NoticeLoginRequired NoticeKind = "login-required"
	NoticeVoteFailed    NoticeKind = "vote-failed"
)

// Notice is a transient user-visible notification.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Notifier receives user-visible notifications raised by board operations.
type Notifier interface {
	Notify(notice Notice)
}

// CastError carries a server-provided rejection message alongside the
// transport error. When the message is present it is surfaced to the user
// verbatim; otherwise the board falls back to a generic failure message.
type CastError struct {
	ServerMessage string
	Err           error
}

func (e *CastError) Error() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "vote rejected"
}

func (e *CastError) Unwrap() error {
	return e.Err
}

const (
	messageLoginRequired = "You must be logged in to vote"
	messageVoteFailed    = "Failed to register vote — please try again"
)

var (
	errMissingCaster   = errors.New("board: vote caster is required")
	errMissingNotifier = errors.New("board: notifier is required")
	errMissingTripID   = errors.New("board: trip identifier is required")
)

// Config carries the collaborators a Board needs.
type Config struct {
	TripID       string
	DurationDays int
	Caster       Caster
	Notifier     Notifier
}

// Board owns one viewer's itinerary item collection. All mutation flows
// through the vote transition table; the board is not safe for concurrent
// use and is meant to live on a single UI event loop.
type Board struct {
	tripID       string
	durationDays int
	caster       Caster
	notifier     Notifier
	items        []itinerary.ItemView
}

// New validates the configuration and returns an empty board.
func New(cfg Config) (*Board, error) {
	if strings.TrimSpace(cfg.TripID) == "" {
		return nil, errMissingTripID
	}
	if cfg.Caster == nil {
		return nil, errMissingCaster
	}
	if cfg.Notifier == nil {
		return nil, errMissingNotifier
	}
	return &Board{
		tripID:       cfg.TripID,
		durationDays: cfg.DurationDays,
		caster:       cfg.Caster,
		notifier:     cfg.Notifier,
	}, nil
}

// Load replaces the board contents with a freshly fetched snapshot.
func (b *Board) Load(items []itinerary.ItemView, durationDays int) {
	b.items = cloneItems(items)
	b.durationDays = durationDays
}

// Items returns a copy of the current item collection in fetch order.
func (b *Board) Items() []itinerary.ItemView {
	return cloneItems(b.items)
}

// Schedule returns the current collection grouped for display.
func (b *Board) Schedule() []itinerary.DayGroup {
	return itinerary.BuildSchedule(b.items, b.durationDays)
}

// Item returns the current view of one item by id.
func (b *Board) Item(itemID string) (itinerary.ItemView, bool) {
	for _, item := range b.items {
		if item.ItemID == itemID {
			return item, true
		}
	}
	return itinerary.ItemView{}, false
}

// CastVote applies one vote click. The transition is applied to local state
// before the caster is invoked, so the renderer sees the new tally
// immediately. An unauthenticated actor is rejected up front with no state
// change and no network call. A caster failure restores the entire item
// collection to the snapshot taken at click time and raises a notification;
// rollback is whole-board, so a failure can discard another still-in-flight
// optimistic change. Failures never escape this method.
func (b *Board) CastVote(ctx context.Context, actor Actor, itemID string, clicked itinerary.Direction) {
	if !actor.Authenticated() {
		b.notifier.Notify(Notice{Kind: NoticeLoginRequired, Message: messageLoginRequired})
		return
	}

	index := b.indexOf(itemID)
	if index < 0 {
		return
	}

	snapshot := cloneItems(b.items)

	item := b.items[index]
	outcome := itinerary.Transition(item.UserVote, clicked)
	item.Votes += outcome.Delta
	item.UserVote = outcome.UserVote
	b.items[index] = item

	if err := b.caster.CastVote(ctx, b.tripID, itemID, clicked); err != nil {
		b.items = snapshot
		b.notifier.Notify(Notice{Kind: NoticeVoteFailed, Message: failureMessage(err)})
	}
}

func (b *Board) indexOf(itemID string) int {
	for index, item := range b.items {
		if item.ItemID == itemID {
			return index
		}
	}
	return -1
}

func failureMessage(err error) string {
	var cast *CastError
	if errors.As(err, &cast) && strings.TrimSpace(cast.ServerMessage) != "" {
		return cast.ServerMessage
	}
	return messageVoteFailed
}

func cloneItems(items []itinerary.ItemView) []itinerary.ItemView {
	if items == nil {
		return nil
	}
	cloned := make([]itinerary.ItemView, len(items))
	copy(cloned, items)
	return cloned
}
