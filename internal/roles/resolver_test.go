package roles_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learn-and-earn/internal/models"
	"learn-and-earn/internal/roles"
)

type call struct {
	email, code string
}

type fakeLookup struct {
	mu      sync.Mutex
	calls   []call
	roles   map[string]models.Role
	fail    int
	block   chan struct{}
	entered atomic.Int32
}

func (f *fakeLookup) Role(ctx context.Context, email, code string) (models.Role, error) {
	f.entered.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{email: email, code: code})
	if f.fail > 0 {
		f.fail--
		return "", errors.New("backend down")
	}
	key := code
	if key == "" {
		key = email
	}
	return f.roles[key], nil
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNewIdentifier(t *testing.T) {
	id, ok := roles.NewIdentifier(" Ann@Example.com ", " abcd1234 ")
	require.True(t, ok)
	assert.Equal(t, roles.Identifier{Kind: roles.ByReferralCode, Value: "ABCD1234"}, id)

	id, ok = roles.NewIdentifier(" Ann@Example.com ", "  ")
	require.True(t, ok)
	assert.Equal(t, roles.Identifier{Kind: roles.ByEmail, Value: "ann@example.com"}, id)

	_, ok = roles.NewIdentifier("", "")
	assert.False(t, ok)
}

func TestResolveMemoizes(t *testing.T) {
	lookup := &fakeLookup{roles: map[string]models.Role{"ABCD1234": models.RoleAdmin}}
	r := roles.NewResolver(lookup, nil)
	id, _ := roles.NewIdentifier("ann@example.com", "abcd1234")

	for i := 0; i < 3; i++ {
		role, err := r.Resolve(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, role)
	}
	require.Equal(t, 1, lookup.callCount())
	assert.Equal(t, call{code: "ABCD1234"}, lookup.calls[0])
}

func TestResolveSharesInFlightLookup(t *testing.T) {
	lookup := &fakeLookup{
		roles: map[string]models.Role{"ann@example.com": models.RoleMember},
		block: make(chan struct{}),
	}
	r := roles.NewResolver(lookup, nil)
	id, _ := roles.NewIdentifier("ann@example.com", "")

	var wg sync.WaitGroup
	results := make([]models.Role, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Resolve(context.Background(), id)
		}(i)
	}

	require.Eventually(t, func() bool { return lookup.entered.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(lookup.block)
	wg.Wait()

	assert.Equal(t, 1, lookup.callCount())
	for _, role := range results {
		assert.Equal(t, models.RoleMember, role)
	}
}

func TestResolveRetriesOnceThenSettlesOnUser(t *testing.T) {
	lookup := &fakeLookup{fail: 5}
	r := roles.NewResolver(lookup, nil)
	id, _ := roles.NewIdentifier("ann@example.com", "")

	role, err := r.Resolve(context.Background(), id)
	assert.Error(t, err)
	assert.Equal(t, models.RoleUser, role)
	assert.Equal(t, 2, lookup.callCount())

	role, _ = r.Resolve(context.Background(), id)
	assert.Equal(t, models.RoleUser, role)
	assert.Equal(t, 2, lookup.callCount(), "a settled failure is not re-fetched")

	st := r.State(context.Background(), false, id, true)
	assert.Equal(t, roles.State{Role: models.RoleUser}, st)
}

func TestResolveRecoversOnRetry(t *testing.T) {
	lookup := &fakeLookup{fail: 1, roles: map[string]models.Role{"ann@example.com": models.RoleAdmin}}
	r := roles.NewResolver(lookup, nil)
	id, _ := roles.NewIdentifier("ann@example.com", "")

	role, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
	assert.Equal(t, 2, lookup.callCount())
}

func TestRefetchAndInvalidate(t *testing.T) {
	lookup := &fakeLookup{roles: map[string]models.Role{"ann@example.com": models.RoleUser}}
	r := roles.NewResolver(lookup, nil)
	id, _ := roles.NewIdentifier("ann@example.com", "")

	role, _ := r.Resolve(context.Background(), id)
	assert.Equal(t, models.RoleUser, role)

	lookup.mu.Lock()
	lookup.roles["ann@example.com"] = models.RoleMember
	lookup.mu.Unlock()

	role, err := r.Refetch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)
	assert.Equal(t, 2, lookup.callCount())

	r.Reset()
	_, _ = r.Resolve(context.Background(), id)
	assert.Equal(t, 3, lookup.callCount())
}

func TestStateLoading(t *testing.T) {
	lookup := &fakeLookup{
		roles: map[string]models.Role{"ann@example.com": models.RoleAdmin},
		block: make(chan struct{}),
	}
	r := roles.NewResolver(lookup, nil)
	id, ok := roles.NewIdentifier("ann@example.com", "")

	assert.Equal(t, roles.State{Role: models.RoleUser, Loading: true}, r.State(context.Background(), true, id, ok))
	assert.Equal(t, roles.State{Role: models.RoleUser}, r.State(context.Background(), false, roles.Identifier{}, false))

	st := r.State(context.Background(), false, id, ok)
	assert.True(t, st.Loading)
	assert.Equal(t, roles.AccessLoading, roles.AdminAccess(false, st))

	close(lookup.block)
	require.Eventually(t, func() bool {
		return !r.State(context.Background(), false, id, ok).Loading
	}, time.Second, time.Millisecond)

	st = r.State(context.Background(), false, id, ok)
	assert.Equal(t, models.RoleAdmin, st.Role)
	assert.Equal(t, roles.AccessAllowed, roles.AdminAccess(false, st))
	assert.Equal(t, 1, lookup.callCount())
}

func TestStateSettlesOnUserWhenContextDone(t *testing.T) {
	lookup := &fakeLookup{roles: map[string]models.Role{"ann@example.com": models.RoleAdmin}}
	r := roles.NewResolver(lookup, nil)
	id, ok := roles.NewIdentifier("ann@example.com", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 20; i++ {
		st := r.State(ctx, false, id, ok)
		require.Equal(t, roles.State{Role: models.RoleUser}, st)
		assert.Equal(t, roles.AccessForbidden, roles.AdminAccess(false, st))
	}
	assert.Zero(t, lookup.entered.Load())

	require.Eventually(t, func() bool {
		return r.State(context.Background(), false, id, ok) == roles.State{Role: models.RoleAdmin}
	}, time.Second, time.Millisecond)
}

func TestAdminAccess(t *testing.T) {
	assert.Equal(t, roles.AccessLoading, roles.AdminAccess(true, roles.State{Role: models.RoleAdmin}))
	assert.Equal(t, roles.AccessForbidden, roles.AdminAccess(false, roles.State{Role: models.RoleMember}))
	assert.Equal(t, roles.AccessForbidden, roles.AdminAccess(false, roles.State{Role: models.RoleUser}))
	assert.Equal(t, roles.AccessAllowed, roles.AdminAccess(false, roles.State{Role: models.RoleAdmin}))
}
