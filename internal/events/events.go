// Package events carries state-change notifications out of the coordinator.
// Events are staged in an Outbox while a transaction runs and handed to a
// Sink only after the transaction committed.
package events

import (
	"context"
	"strings"
	"time"
)

// Event types.
const (
	TypeRoomsChanged   = "rooms.changed"
	TypeMatchChanged   = "match.changed"
	TypeRoomReadiness  = "room.readiness"
	TypeRankingChanged = "ranking.changed"
	TypeRoomChat       = "room.chat"
)

// ChannelRooms carries the full room list.
const ChannelRooms = "rooms"

// MatchChannel is "room/<id>/match" for room matches, "match/<id>" otherwise.
func MatchChannel(roomID, matchID string) string {
	if strings.TrimSpace(roomID) != "" {
		return "room/" + strings.TrimSpace(roomID) + "/match"
	}
	return "match/" + strings.TrimSpace(matchID)
}

func ReadinessChannel(roomID string) string { return "room/" + strings.TrimSpace(roomID) + "/readiness" }

func ChatChannel(roomID string) string { return "room/" + strings.TrimSpace(roomID) + "/chat" }

func RankingChannel(period string) string { return "ranking/" + strings.TrimSpace(period) }

// Event is one notification. Subject is the id the payload describes (room,
// match or period). A nil Payload is resolved from committed state just
// before dispatch.
type Event struct {
	Type    string    `json:"type"`
	Channel string    `json:"channel"`
	Subject string    `json:"subject,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher delivers one event to a transport.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Sink accepts committed events. Implementations never report failures back
// to the caller.
type Sink interface {
	Dispatch(evs []Event)
}

// Outbox collects events produced inside one transaction. Events without a
// payload are de-duplicated by type, channel and subject.
type Outbox struct {
	events []Event
}

func (o *Outbox) Add(ev Event) {
	if ev.Payload == nil {
		for _, e := range o.events {
			if e.Payload == nil && e.Type == ev.Type && e.Channel == ev.Channel && e.Subject == ev.Subject {
				return
			}
		}
	}
	o.events = append(o.events, ev)
}

func (o *Outbox) RoomsChanged() {
	o.Add(Event{Type: TypeRoomsChanged, Channel: ChannelRooms})
}

func (o *Outbox) MatchChanged(roomID, matchID string) {
	o.Add(Event{Type: TypeMatchChanged, Channel: MatchChannel(roomID, matchID), Subject: matchID})
}

func (o *Outbox) Readiness(roomID string, payload any) {
	o.Add(Event{Type: TypeRoomReadiness, Channel: ReadinessChannel(roomID), Subject: roomID, Payload: payload})
}

// Chat stages a chat message. Chat events are never de-duplicated.
func (o *Outbox) Chat(roomID string, payload any) {
	o.events = append(o.events, Event{Type: TypeRoomChat, Channel: ChatChannel(roomID), Subject: roomID, Payload: payload})
}

// RankingChanged stages one event per period.
func (o *Outbox) RankingChanged(periods ...string) {
	for _, p := range periods {
		o.Add(Event{Type: TypeRankingChanged, Channel: RankingChannel(p), Subject: p})
	}
}

// Events returns the staged events in insertion order.
func (o *Outbox) Events() []Event {
	out := make([]Event, len(o.events))
	copy(out, o.events)
	return out
}

func (o *Outbox) Len() int { return len(o.events) }

func (o *Outbox) Reset() { o.events = o.events[:0] }
