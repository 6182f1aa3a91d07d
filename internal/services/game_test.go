package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learn-and-earn/internal/config"
	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

type recordingBroadcaster struct {
	mu      sync.Mutex
	updates []models.BalanceUpdate
}

func (b *recordingBroadcaster) BroadcastBalance(u models.BalanceUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, u)
}

func (b *recordingBroadcaster) last() models.BalanceUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updates[len(b.updates)-1]
}

func newTestEngine(t *testing.T, now time.Time) (*services.GameEngine, *services.RedisService, *recordingBroadcaster) {
	t.Helper()
	store, _ := setupTestRedis(t)
	b := &recordingBroadcaster{}
	engine := services.NewGameEngine(store, config.DefaultGameRules(), b, nil, nil)
	engine.SetClock(func() time.Time { return now })
	return engine, store, b
}

func TestNextReset(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), services.NextReset(now))

	dhaka := time.FixedZone("BST", 6*60*60)
	local := time.Date(2026, 3, 11, 2, 0, 0, 0, dhaka)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), services.NextReset(local))
}

func TestLotteryReward(t *testing.T) {
	rules := config.DefaultGameRules()

	assert.Equal(t, int64(50), services.LotteryReward(rules, []string{"💎", "💎", "💎"}))
	assert.Equal(t, int64(5), services.LotteryReward(rules, []string{"💎", "🍒", "💎"}))
	assert.Equal(t, int64(0), services.LotteryReward(rules, []string{"💎", "🍒", "🍋"}))
	assert.Equal(t, int64(0), services.LotteryReward(rules, []string{"💎"}))
}

func TestDinoReward(t *testing.T) {
	rules := config.DefaultGameRules()

	assert.Equal(t, int64(0), services.DinoReward(rules, 0))
	assert.Equal(t, int64(0), services.DinoReward(rules, 99))
	assert.Equal(t, int64(4), services.DinoReward(rules, 450))
	assert.Equal(t, int64(20), services.DinoReward(rules, 1_000_000))
}

func TestVerifySlotsDeterministic(t *testing.T) {
	a := services.VerifySlots("server", "client", 7)
	b := services.VerifySlots("server", "client", 7)

	require.Len(t, a, models.ReelCount)
	assert.Equal(t, a, b)
	for _, s := range a {
		assert.Contains(t, models.SlotSymbols, s)
	}
}

func TestPlayLottery(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	engine, store, b := newTestEngine(t, now)
	ctx := context.Background()

	seedUser(t, store, "alice@example.com", "ALICE001")

	_, err := engine.PlayLottery(ctx, "alice@example.com")
	assert.ErrorIs(t, err, services.ErrGamesLocked)

	require.NoError(t, store.UpdateUserFields(ctx, "alice@example.com", "unlocked_until", now.Add(time.Hour).UnixMilli()))

	var total int64
	for want := 2; want >= 0; want-- {
		resp, err := engine.PlayLottery(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Len(t, resp.Slots, models.ReelCount)
		assert.Equal(t, resp.Reward > 0, resp.Win)
		assert.Equal(t, services.VerifySlots(engine.ServerSeed(), "seed-ALICE001", resp.Nonce), resp.Slots)

		left, ok := resp.Remaining()
		require.True(t, ok)
		assert.Equal(t, want, left)
		assert.Equal(t, services.NextReset(now), *resp.NextResetAt)

		total += resp.Reward
		assert.Equal(t, total, *resp.NewBalance)
		assert.Equal(t, total, b.last().Balance)
	}

	_, err = engine.PlayLottery(ctx, "alice@example.com")
	assert.ErrorIs(t, err, services.ErrNoPlaysLeft)

	user, err := store.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, total, user.Balance)
	assert.Equal(t, int64(3), user.Nonce)
}

func TestPlayDino(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(t, now)
	ctx := context.Background()

	seedUser(t, store, "alice@example.com", "ALICE001", func(u *models.User) {
		u.UnlockedUntil = now.Add(time.Hour).UnixMilli()
	})

	resp, err := engine.PlayDino(ctx, "alice@example.com", 730)
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.Reward)
	assert.Equal(t, int64(7), *resp.NewBalance)
	assert.Equal(t, 2, *resp.RemainingPlays)

	txs, err := store.GetUserTransactions(ctx, "alice@example.com", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.GameDino, txs[0].Game)

	allowances, err := engine.Allowances(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, allowances[models.GameDino].RemainingToday)
	assert.Equal(t, 3, allowances[models.GameLottery].RemainingToday)

	_, err = engine.PlayDino(ctx, "alice@example.com", -1)
	assert.Error(t, err)
}

func TestUnlock(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	engine, store, b := newTestEngine(t, now)
	ctx := context.Background()

	seedUser(t, store, "poor@example.com", "POOR0001", func(u *models.User) { u.Tokens = 2 })
	seedUser(t, store, "rich@example.com", "RICH0001", func(u *models.User) {
		u.Tokens = 6
		u.Balance = 500
	})

	_, err := engine.Unlock(ctx, "poor@example.com")
	assert.ErrorIs(t, err, services.ErrInsufficientTokens)

	resp, err := engine.Unlock(ctx, "rich@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), *resp.Tokens)
	assert.Equal(t, now.Add(24*time.Hour), *resp.UnlockDate)
	assert.Equal(t, int64(2), b.last().Tokens)

	txs, err := store.GetUserTransactions(ctx, "rich@example.com", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.UnitTokens, txs[0].Unit)
	assert.Equal(t, int64(-4), txs[0].Amount)
	assert.Equal(t, int64(2), txs[0].BalanceAfter)

	_, err = engine.Unlock(ctx, "rich@example.com")
	assert.ErrorIs(t, err, services.ErrAlreadyUnlocked)
}

func TestRotateServerSeed(t *testing.T) {
	engine, store, _ := newTestEngine(t, time.Now())
	ctx := context.Background()
	seedUser(t, store, "alice@example.com", "ALICE001")

	before := engine.GetServerHash()
	old := engine.RotateServerSeed()
	assert.NotEmpty(t, old)
	assert.NotEqual(t, before, engine.GetServerHash())

	data, err := engine.GetVerificationData(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "seed-ALICE001", data.ClientSeed)
	assert.Equal(t, engine.GetServerHash(), data.ServerHash)
	assert.Equal(t, int64(0), data.CurrentNonce)
}
