package store

import (
	"context"
	"errors"
	"sync"
)

var errReadOnly = errors.New("store: write in read-only transaction")

// Memory is a process-local KV. Transactions are serialised by one mutex,
// so they never conflict.
type Memory struct {
	mu      sync.RWMutex
	strings map[string][]byte
	sets    map[string]map[string]struct{}
	zsets   map[string]map[string]float64
}

func NewMemory() *Memory {
	return &Memory{
		strings: map[string][]byte{},
		sets:    map[string]map[string]struct{}{},
		zsets:   map[string]map[string]float64{},
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		return err
	}
	m.apply(tx.buf.ops)
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx := &memTx{m: m, readOnly: true}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.err
}

func (m *Memory) apply(ops []op) {
	for _, o := range ops {
		switch o.kind {
		case opSet:
			m.strings[o.key] = o.value
		case opDelete:
			delete(m.strings, o.key)
			delete(m.sets, o.key)
			delete(m.zsets, o.key)
		case opAdd:
			s := m.sets[o.key]
			if s == nil {
				s = map[string]struct{}{}
				m.sets[o.key] = s
			}
			s[o.member] = struct{}{}
		case opRemove:
			if s := m.sets[o.key]; s != nil {
				delete(s, o.member)
				if len(s) == 0 {
					delete(m.sets, o.key)
				}
			}
		case opScored:
			z := m.zsets[o.key]
			if z == nil {
				z = map[string]float64{}
				m.zsets[o.key] = z
			}
			z[o.member] = o.score
		}
	}
}

type memTx struct {
	m        *Memory
	buf      writeBuffer
	readOnly bool
	err      error
}

func (t *memTx) Get(_ context.Context, key string) ([]byte, bool, error) {
	if v, found, touched := t.buf.value(key); touched {
		return append([]byte(nil), v...), found, nil
	}
	v, ok := t.m.strings[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (t *memTx) Members(_ context.Context, key string) ([]string, error) {
	base := make([]string, 0, len(t.m.sets[key]))
	for k := range t.m.sets[key] {
		base = append(base, k)
	}
	return t.buf.members(key, base), nil
}

func (t *memTx) RangeSince(_ context.Context, key string, min float64) ([]string, error) {
	base := make([]scored, 0, len(t.m.zsets[key]))
	for k, s := range t.m.zsets[key] {
		base = append(base, scored{member: k, score: s})
	}
	return t.buf.scored(key, base, min), nil
}

func (t *memTx) Set(key string, value []byte) {
	if t.guard() {
		t.buf.Set(key, value)
	}
}

func (t *memTx) Delete(key string) {
	if t.guard() {
		t.buf.Delete(key)
	}
}

func (t *memTx) AddMember(key, member string) {
	if t.guard() {
		t.buf.AddMember(key, member)
	}
}

func (t *memTx) RemoveMember(key, member string) {
	if t.guard() {
		t.buf.RemoveMember(key, member)
	}
}

func (t *memTx) AddScored(key, member string, score float64) {
	if t.guard() {
		t.buf.AddScored(key, member, score)
	}
}

func (t *memTx) guard() bool {
	if t.readOnly {
		t.err = errReadOnly
		return false
	}
	return true
}
