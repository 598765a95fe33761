package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*repository.User
	touched []string
}

func newFakeUsers(users ...*repository.User) *fakeUsers {
	f := &fakeUsers{byEmail: map[string]*repository.User{}}
	for _, u := range users {
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[in.Email]; ok {
		return nil, repository.ErrConflict
	}
	u := &repository.User{ID: uuid.NewString(), Email: in.Email, PasswordHash: in.PasswordHash, Status: in.Status}
	f.byEmail[in.Email] = u
	return u, nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeUsers) setStatus(email string, st repository.UserStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[email].Status = st
}

type fakeUserTenants struct {
	mu sync.Mutex
	// userID -> tenantID -> last_activated
	rows map[string]map[string]time.Time
	tick time.Time
}

func newFakeUserTenants() *fakeUserTenants {
	return &fakeUserTenants{rows: map[string]map[string]time.Time{}, tick: time.Unix(1_700_000_000, 0)}
}

func (f *fakeUserTenants) add(userID, tenantID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[userID] == nil {
		f.rows[userID] = map[string]time.Time{}
	}
	f.tick = f.tick.Add(time.Second)
	f.rows[userID][tenantID] = f.tick
}

func (f *fakeUserTenants) GetActiveTenant(_ context.Context, userID string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best string
	var bestAt time.Time
	for t, at := range f.rows[userID] {
		if best == "" || at.After(bestAt) {
			best, bestAt = t, at
		}
	}
	if best == "" {
		return nil, nil
	}
	f.tick = f.tick.Add(time.Second)
	f.rows[userID][best] = f.tick
	return &best, nil
}

func (f *fakeUserTenants) Activate(_ context.Context, userID, tenantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[userID][tenantID]; !ok {
		return repository.ErrNotFound
	}
	f.tick = f.tick.Add(time.Second)
	f.rows[userID][tenantID] = f.tick
	return nil
}

func (f *fakeUserTenants) ListForUser(_ context.Context, userID string) ([]repository.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Membership
	for t, at := range f.rows[userID] {
		out = append(out, repository.Membership{TenantID: t, Role: repository.RoleOwner, LastActivated: at})
	}
	return out, nil
}

type fakeTokens struct {
	mu   sync.Mutex
	byID map[string]*repository.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byID: map[string]*repository.RefreshToken{}}
}

func (f *fakeTokens) Create(_ context.Context, t repository.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[t.JTI]; ok {
		return repository.ErrConflict
	}
	cp := t
	f.byID[t.JTI] = &cp
	return nil
}

func (f *fakeTokens) GetByJTI(_ context.Context, jti string) (*repository.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[jti]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) Consume(_ context.Context, jti, replacedBy string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[jti]
	if !ok || t.Consumed || t.Revoked {
		return false, nil
	}
	t.Consumed = true
	t.ReplacedBy = &replacedBy
	return true, nil
}

func (f *fakeTokens) RevokeFamily(_ context.Context, familyID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.byID {
		if t.FamilyID == familyID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) familyRevoked(familyID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for _, t := range f.byID {
		if t.FamilyID == familyID {
			found = true
			if !t.Revoked {
				return false
			}
		}
	}
	return found
}

type fakeEvents struct {
	mu       sync.Mutex
	events   []repository.AccountEvent
	now      func() time.Time
	countErr error
}

func newFakeEvents(now func() time.Time) *fakeEvents {
	return &fakeEvents{now: now}
}

func (f *fakeEvents) Insert(_ context.Context, e repository.AccountEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.CreatedAt = f.now()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) CountFailuresByIP(_ context.Context, ip string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, e := range f.events {
		if e.IP != ip || e.CreatedAt.Before(since) {
			continue
		}
		switch e.Status {
		case repository.EventFailure, repository.EventBlocked, repository.EventError:
			n++
		}
	}
	return n, nil
}

func (f *fakeEvents) last() repository.AccountEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

func (f *fakeEvents) countStatus(typ repository.EventType, st repository.EventStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == typ && e.Status == st {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")
