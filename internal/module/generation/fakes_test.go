package generation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cuentia/server/internal/module/character"
	"github.com/cuentia/server/internal/module/credits"
	"github.com/google/uuid"
)

// fakeLedger tracks a single balance and the status of every debit it issued.
type fakeLedger struct {
	credits.ServiceInterface

	mu         sync.Mutex
	available  int64
	debits     map[uuid.UUID]*credits.Debit
	debitErr   error
	affordErr  error
	rollbackFn func(id uuid.UUID) error
}

func newFakeLedger(available int64) *fakeLedger {
	return &fakeLedger{available: available, debits: make(map[uuid.UUID]*credits.Debit)}
}

func (l *fakeLedger) CanAfford(ctx context.Context, userID uuid.UUID, cost int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.affordErr != nil {
		return false, l.affordErr
	}
	return l.available >= cost, nil
}

func (l *fakeLedger) Debit(ctx context.Context, req credits.DebitRequest) (*credits.Debit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.debitErr != nil {
		return nil, l.debitErr
	}
	if l.available < req.Cost {
		return nil, credits.Fail("debit", credits.KindConcurrentModification, credits.ErrConcurrentModification)
	}
	l.available -= req.Cost
	d := &credits.Debit{
		ID:            uuid.New(),
		UserID:        req.UserID,
		Cost:          req.Cost,
		CorrelationID: req.CorrelationID,
		Reason:        req.Reason,
		Status:        credits.DebitStatusPending,
	}
	l.debits[d.ID] = d
	return d, nil
}

func (l *fakeLedger) Confirm(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.debits[id]
	if !ok {
		return credits.ErrDebitNotFound
	}
	if d.Status == credits.DebitStatusRolledBack {
		return credits.ErrDebitSettled
	}
	d.Status = credits.DebitStatusConfirmed
	return nil
}

func (l *fakeLedger) Rollback(ctx context.Context, id uuid.UUID, reason string) (*credits.Debit, error) {
	if l.rollbackFn != nil {
		if err := l.rollbackFn(id); err != nil {
			return nil, err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.debits[id]
	if !ok {
		return nil, credits.ErrDebitNotFound
	}
	if !d.IsPending() {
		return nil, credits.ErrDebitSettled
	}
	d.Status = credits.DebitStatusRolledBack
	l.available += d.Cost
	return d, nil
}

func (l *fakeLedger) balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// pending counts debits that were neither confirmed nor rolled back.
func (l *fakeLedger) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, d := range l.debits {
		if d.IsPending() {
			n++
		}
	}
	return n
}

func (l *fakeLedger) statuses() []credits.DebitStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]credits.DebitStatus, 0, len(l.debits))
	for _, d := range l.debits {
		out = append(out, d.Status)
	}
	return out
}

// fakeCharacters serves a fixed set of characters.
type fakeCharacters struct {
	character.ServiceInterface

	mu      sync.Mutex
	chars   map[uuid.UUID]*character.Character
	avatars map[uuid.UUID]string
}

func newFakeCharacters(chars ...*character.Character) *fakeCharacters {
	f := &fakeCharacters{chars: make(map[uuid.UUID]*character.Character), avatars: make(map[uuid.UUID]string)}
	for _, c := range chars {
		f.chars[c.ID] = c
	}
	return f
}

func (f *fakeCharacters) Get(ctx context.Context, userID, id uuid.UUID) (*character.Character, error) {
	c, ok := f.chars[id]
	if !ok || c.UserID != userID {
		return nil, character.ErrCharacterNotFound
	}
	return c, nil
}

func (f *fakeCharacters) GetOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*character.Character, error) {
	var out []*character.Character
	for _, id := range ids {
		c, err := f.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCharacters) SetAvatarURL(ctx context.Context, userID, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.avatars[id] = url
	return nil
}

// memRepo is an in-memory Repository.
type memRepo struct {
	mu        sync.Mutex
	gens      map[uuid.UUID]Generation
	createErr error
	updateErr error
}

func newMemRepo() *memRepo {
	return &memRepo{gens: make(map[uuid.UUID]Generation)}
}

func (r *memRepo) Create(ctx context.Context, g *Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.gens[g.ID] = *g
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gens[id]
	if !ok {
		return nil, ErrGenerationNotFound
	}
	return &g, nil
}

func (r *memRepo) Update(ctx context.Context, g *Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.gens[g.ID] = *g
	return nil
}

func (r *memRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gens[id]
	if !ok || g.Status != StatusPending {
		return false, nil
	}
	g.markFailed(reason, at)
	r.gens[id] = g
	return true, nil
}

func (r *memRepo) all() []Generation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Generation, 0, len(r.gens))
	for _, g := range r.gens {
		out = append(out, g)
	}
	return out
}

// fakeGateway answers with a configurable function.
type fakeGateway struct {
	mu    sync.Mutex
	calls []*GatewayRequest
	fn    func(req *GatewayRequest) (*GatewayResult, error)
}

func (g *fakeGateway) Generate(ctx context.Context, req *GatewayRequest) (*GatewayResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	if g.fn == nil {
		return &GatewayResult{ResultURL: "https://cdn.test/result"}, nil
	}
	return g.fn(req)
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failKey string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Key(elem ...string) string {
	return strings.Join(append([]string{"test"}, elem...), "/")
}

func (s *memStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failKey != "" && strings.HasSuffix(key, s.failKey) {
		return errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}
