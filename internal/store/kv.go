// Package store is the keyed record store behind the coordinator. Every
// mutation runs inside Update: reads observe the transaction's own writes,
// writes are buffered and applied atomically only when the callback returns
// nil. Two backends are provided, Redis (WATCH/MULTI) and in-memory.
package store

import (
	"context"
	"errors"
	"sort"
)

// ErrConflict is returned when a transaction kept losing optimistic races.
var ErrConflict = errors.New("store: transaction conflict, retries exhausted")

// Tx is the view a transaction callback gets on the store.
type Tx interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Members(ctx context.Context, key string) ([]string, error)
	// RangeSince returns members of a sorted set with score >= min, ordered
	// by score then member.
	RangeSince(ctx context.Context, key string, min float64) ([]string, error)

	Set(key string, value []byte)
	Delete(key string)
	AddMember(key, member string)
	RemoveMember(key, member string)
	AddScored(key, member string, score float64)
}

// KV is a transactional backend.
type KV interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type opKind int

const (
	opSet opKind = iota
	opDelete
	opAdd
	opRemove
	opScored
)

type op struct {
	kind   opKind
	key    string
	member string
	value  []byte
	score  float64
}

// writeBuffer records writes in order and answers reads against them.
type writeBuffer struct {
	ops []op
}

func (w *writeBuffer) Set(key string, value []byte) {
	c := append([]byte(nil), value...)
	w.ops = append(w.ops, op{kind: opSet, key: key, value: c})
}

func (w *writeBuffer) Delete(key string) { w.ops = append(w.ops, op{kind: opDelete, key: key}) }

func (w *writeBuffer) AddMember(key, member string) {
	w.ops = append(w.ops, op{kind: opAdd, key: key, member: member})
}

func (w *writeBuffer) RemoveMember(key, member string) {
	w.ops = append(w.ops, op{kind: opRemove, key: key, member: member})
}

func (w *writeBuffer) AddScored(key, member string, score float64) {
	w.ops = append(w.ops, op{kind: opScored, key: key, member: member, score: score})
}

// value resolves key against the buffer. touched is false when the buffer
// never wrote key.
func (w *writeBuffer) value(key string) (val []byte, found, touched bool) {
	for i := len(w.ops) - 1; i >= 0; i-- {
		o := w.ops[i]
		if o.key != key {
			continue
		}
		switch o.kind {
		case opSet:
			return o.value, true, true
		case opDelete:
			return nil, false, true
		}
	}
	return nil, false, false
}

func (w *writeBuffer) members(key string, base []string) []string {
	set := make(map[string]struct{}, len(base))
	for _, m := range base {
		set[m] = struct{}{}
	}
	for _, o := range w.ops {
		if o.key != key {
			continue
		}
		switch o.kind {
		case opAdd:
			set[o.member] = struct{}{}
		case opRemove:
			delete(set, o.member)
		case opDelete:
			set = map[string]struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

type scored struct {
	member string
	score  float64
}

func (w *writeBuffer) scored(key string, base []scored, min float64) []string {
	byMember := make(map[string]float64, len(base))
	for _, s := range base {
		byMember[s.member] = s.score
	}
	for _, o := range w.ops {
		if o.key != key {
			continue
		}
		switch o.kind {
		case opScored:
			byMember[o.member] = o.score
		case opDelete:
			byMember = map[string]float64{}
		}
	}
	return sortScored(byMember, min)
}

func sortScored(byMember map[string]float64, min float64) []string {
	list := make([]scored, 0, len(byMember))
	for m, s := range byMember {
		if s >= min {
			list = append(list, scored{member: m, score: s})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score < list[j].score
		}
		return list[i].member < list[j].member
	})
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.member
	}
	return out
}
