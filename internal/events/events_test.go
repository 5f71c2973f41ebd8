package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestOutboxDedupesUnresolvedEvents(t *testing.T) {
	var o Outbox
	o.RoomsChanged()
	o.MatchChanged("r1", "m1")
	o.RoomsChanged()
	o.Readiness("r1", map[string]int{"ready_count": 1})
	o.Readiness("r1", map[string]int{"ready_count": 2})
	o.RankingChanged("dia", "semana")
	if o.Len() != 6 {
		t.Fatalf("outbox len = %d, want 6: %+v", o.Len(), o.Events())
	}
	if got := o.Events()[1].Channel; got != "room/r1/match" {
		t.Fatalf("match channel = %q", got)
	}
	o.Reset()
	if o.Len() != 0 {
		t.Fatalf("reset left %d events", o.Len())
	}
}

func TestOutboxKeepsDistinctSubjectsOnSharedChannel(t *testing.T) {
	var o Outbox
	o.MatchChanged("r1", "m1")
	o.MatchChanged("r1", "m2")
	o.MatchChanged("r1", "m1")
	evs := o.Events()
	if len(evs) != 2 || evs[0].Subject != "m1" || evs[1].Subject != "m2" {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if evs[0].Channel != evs[1].Channel {
		t.Fatalf("both matches should share the room channel: %+v", evs)
	}
}

func TestOutboxChatIsNotDeduplicated(t *testing.T) {
	var o Outbox
	o.Chat("r1", nil)
	o.Chat("r1", nil)
	if o.Len() != 2 {
		t.Fatalf("outbox len = %d, want 2", o.Len())
	}
	if got := o.Events()[0].Channel; got != "room/r1/chat" {
		t.Fatalf("chat channel = %q", got)
	}
}

func TestMatchChannelWithoutRoom(t *testing.T) {
	if got := MatchChannel("", "m9"); got != "match/m9" {
		t.Fatalf("MatchChannel = %q", got)
	}
}

func TestAsyncDeliversAndSwallowsErrors(t *testing.T) {
	rec := &Recorder{}
	failing := PublisherFunc(func(context.Context, Event) error { return errors.New("no subscribers") })
	a := NewAsync(Multi{failing, rec}, WithQueueSize(8))
	a.Dispatch([]Event{{Type: TypeRoomsChanged, Channel: ChannelRooms}, {Type: TypeMatchChanged, Channel: "match/x"}})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(rec.Events()); n != 2 {
		t.Fatalf("recorded %d events, want 2", n)
	}
	a.Dispatch([]Event{{Type: TypeRoomsChanged}})
}

func TestAsyncDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	slow := PublisherFunc(func(context.Context, Event) error { <-block; return nil })
	a := NewAsync(slow, WithQueueSize(1))
	evs := make([]Event, 10)
	a.Dispatch(evs)
	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRedisPublisher(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	pub := NewRedisPublisher(rdb, "")
	sub := rdb.Subscribe(ctx, pub.Channel(ChannelRooms))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := pub.Publish(ctx, Event{Type: TypeRoomsChanged, Channel: ChannelRooms, Payload: []string{"r1"}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Type != TypeRoomsChanged || msg.Channel != "battleship:rooms" {
			t.Fatalf("unexpected message %s %+v", msg.Channel, ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message received")
	}

	// Publishing without subscribers succeeds.
	if err := pub.Publish(ctx, Event{Type: TypeMatchChanged, Channel: "match/none"}); err != nil {
		t.Fatalf("Publish without subscribers: %v", err)
	}
}
