package credits

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository. InTx holds a single lock for the whole
// transaction, which is at least as strict as row locks, and applies staged
// writes only when fn succeeds.
type memRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]Account
	debits   map[uuid.UUID]Debit
	grants   map[string]Grant

	// failure injection
	failSaveAccount error
	failCreateDebit error
	failSaveDebit   error
	failGetAccount  error

	// onLock runs after an account is locked inside a transaction.
	onLock func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: make(map[uuid.UUID]Account),
		debits:   make(map[uuid.UUID]Debit),
		grants:   make(map[string]Grant),
	}
}

func (r *memRepo) put(a Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.UserID] = a
}

func (r *memRepo) account(userID uuid.UUID) Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[userID]
}

func (r *memRepo) debit(id uuid.UUID) Debit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.debits[id]
}

func (r *memRepo) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGetAccount != nil {
		return nil, r.failGetAccount
	}
	a, ok := r.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (r *memRepo) CreateAccount(ctx context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.UserID]; !ok {
		r.accounts[account.UserID] = *account
	}
	return nil
}

func (r *memRepo) GetDebit(ctx context.Context, id uuid.UUID) (*Debit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.debits[id]
	if !ok {
		return nil, ErrDebitNotFound
	}
	return &d, nil
}

func (r *memRepo) ListDebits(ctx context.Context, userID uuid.UUID, limit int) ([]*Debit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Debit
	for _, d := range r.debits {
		if d.UserID == userID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ListStaleDebits(ctx context.Context, before time.Time, limit int) ([]*Debit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Debit
	for _, d := range r.debits {
		if d.Status == DebitStatusPending && d.CreatedAt.Before(before) {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{
		r:        r,
		accounts: make(map[uuid.UUID]Account),
		debits:   make(map[uuid.UUID]Debit),
		grants:   make(map[string]Grant),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.accounts {
		r.accounts[k] = v
	}
	for k, v := range tx.debits {
		r.debits[k] = v
	}
	for k, v := range tx.grants {
		r.grants[k] = v
	}
	return nil
}

type memTx struct {
	r        *memRepo
	accounts map[uuid.UUID]Account
	debits   map[uuid.UUID]Debit
	grants   map[string]Grant
}

func (t *memTx) LockAccount(userID uuid.UUID) (*Account, error) {
	a, ok := t.accounts[userID]
	if !ok {
		a, ok = t.r.accounts[userID]
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	if t.r.onLock != nil {
		t.r.onLock()
	}
	return &a, nil
}

func (t *memTx) SaveAccount(account *Account) error {
	if t.r.failSaveAccount != nil {
		return t.r.failSaveAccount
	}
	t.accounts[account.UserID] = *account
	return nil
}

func (t *memTx) CreateDebit(debit *Debit) error {
	if t.r.failCreateDebit != nil {
		return t.r.failCreateDebit
	}
	t.debits[debit.ID] = *debit
	return nil
}

func (t *memTx) LockDebit(id uuid.UUID) (*Debit, error) {
	d, ok := t.debits[id]
	if !ok {
		d, ok = t.r.debits[id]
	}
	if !ok {
		return nil, ErrDebitNotFound
	}
	return &d, nil
}

func (t *memTx) SaveDebit(debit *Debit) error {
	if t.r.failSaveDebit != nil {
		return t.r.failSaveDebit
	}
	t.debits[debit.ID] = *debit
	return nil
}

func (t *memTx) CreateGrant(grant *Grant) (bool, error) {
	if _, ok := t.r.grants[grant.Reference]; ok {
		return false, nil
	}
	if _, ok := t.grants[grant.Reference]; ok {
		return false, nil
	}
	t.grants[grant.Reference] = *grant
	return true, nil
}

var _ Repository = (*memRepo)(nil)
