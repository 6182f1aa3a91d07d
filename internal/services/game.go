package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"learn-and-earn/internal/config"
	"learn-and-earn/internal/metrics"
	"learn-and-earn/internal/models"
)

// GameEngine runs the free-play mini-games. Every counter it touches lives in
// Redis; the engine only holds the provably-fair server seed.
type GameEngine struct {
	store       *RedisService
	rules       config.GameRules
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time

	mu         sync.RWMutex
	serverSeed string
}

func NewGameEngine(store *RedisService, rules config.GameRules, broadcaster Broadcaster, m *metrics.Metrics, logger *slog.Logger) *GameEngine {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GameEngine{
		store:       store,
		rules:       rules,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
		serverSeed:  generateServerSeed(),
	}
}

// SetBroadcaster swaps the push target once the websocket hub exists.
func (ge *GameEngine) SetBroadcaster(b Broadcaster) {
	if b != nil {
		ge.broadcaster = b
	}
}

func (ge *GameEngine) Rules() config.GameRules {
	return ge.rules
}

func generateServerSeed() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(bytes)
}

func (ge *GameEngine) seed() string {
	ge.mu.RLock()
	defer ge.mu.RUnlock()
	return ge.serverSeed
}

func (ge *GameEngine) GetServerHash() string {
	hash := sha256.Sum256([]byte(ge.seed()))
	return hex.EncodeToString(hash[:])
}

// RotateServerSeed installs a fresh seed and returns the retired one so
// past results can be verified.
func (ge *GameEngine) RotateServerSeed() string {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	old := ge.serverSeed
	ge.serverSeed = generateServerSeed()
	return old
}

// NextReset is the instant the daily free-play counters roll over: the next
// UTC midnight.
func NextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// VerifySlots recomputes the reels of one lottery play.
func VerifySlots(serverSeed, clientSeed string, nonce int64) []string {
	message := fmt.Sprintf("slots:%s:%d", clientSeed, nonce)
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	sum := h.Sum(nil)

	slots := make([]string, models.ReelCount)
	for i := range slots {
		slots[i] = models.SlotSymbols[int(sum[i])%len(models.SlotSymbols)]
	}
	return slots
}

// LotteryReward pays the jackpot for three of a kind and the pair reward for
// any two matching reels.
func LotteryReward(rules config.GameRules, slots []string) int64 {
	if len(slots) != models.ReelCount {
		return 0
	}
	switch {
	case slots[0] == slots[1] && slots[1] == slots[2]:
		return rules.LotteryJackpot
	case slots[0] == slots[1] || slots[1] == slots[2] || slots[0] == slots[2]:
		return rules.LotteryPairReward
	default:
		return 0
	}
}

// DinoReward converts a runner score into balance.
func DinoReward(rules config.GameRules, score int) int64 {
	if score <= 0 || rules.DinoPointsPerReward <= 0 {
		return 0
	}
	reward := int64(score / rules.DinoPointsPerReward)
	if reward > rules.DinoMaxReward {
		reward = rules.DinoMaxReward
	}
	return reward
}

func (ge *GameEngine) PlayLottery(ctx context.Context, email string) (*models.PlayFreeResponse, error) {
	now := ge.now().UTC()
	resetAt := NextReset(now)

	remaining, err := ge.store.ConsumePlay(ctx, models.GameLottery, email, ge.rules.FreePlaysPerDay, now, resetAt)
	if err != nil {
		return nil, err
	}

	clientSeed, nonce, err := ge.store.NextNonce(ctx, email)
	if err != nil {
		return nil, err
	}

	slots := VerifySlots(ge.seed(), clientSeed, nonce)
	reward := LotteryReward(ge.rules, slots)

	balance, err := ge.settleReward(ctx, email, models.GameLottery, reward, now)
	if err != nil {
		return nil, err
	}

	resp := &models.PlayFreeResponse{
		Success:        true,
		Win:            reward > 0,
		Slots:          slots,
		Reward:         reward,
		NewBalance:     models.Int64Ptr(balance),
		RemainingPlays: models.IntPtr(remaining),
		FreePlaysLeft:  models.IntPtr(remaining),
		NextResetAt:    models.TimePtr(resetAt),
		Nonce:          nonce,
	}
	switch {
	case reward >= ge.rules.LotteryJackpot:
		resp.Message = fmt.Sprintf("Jackpot! You won %s", models.FormatTaka(reward))
	case reward > 0:
		resp.Message = fmt.Sprintf("You won %s", models.FormatTaka(reward))
	default:
		resp.Message = "No match this time. Try again!"
	}

	ge.logger.InfoContext(ctx, "lottery played",
		slog.String("email", email),
		slog.Int64("reward", reward),
		slog.Int("remaining", remaining),
	)
	return resp, nil
}

func (ge *GameEngine) PlayDino(ctx context.Context, email string, score int) (*models.DinoPlayResponse, error) {
	if score < 0 {
		return nil, invalidInput(fmt.Errorf("score must not be negative"))
	}

	now := ge.now().UTC()
	resetAt := NextReset(now)

	remaining, err := ge.store.ConsumePlay(ctx, models.GameDino, email, ge.rules.FreePlaysPerDay, now, resetAt)
	if err != nil {
		return nil, err
	}

	reward := DinoReward(ge.rules, score)
	balance, err := ge.settleReward(ctx, email, models.GameDino, reward, now)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Score %d. No reward this run.", score)
	if reward > 0 {
		message = fmt.Sprintf("Score %d. You earned %s", score, models.FormatTaka(reward))
	}

	return &models.DinoPlayResponse{
		Success:        true,
		Message:        message,
		Reward:         reward,
		NewBalance:     models.Int64Ptr(balance),
		RemainingPlays: models.IntPtr(remaining),
		NextResetAt:    models.TimePtr(resetAt),
	}, nil
}

// settleReward credits a play's reward, records it and pushes the new wallet.
// It returns the balance after the play.
func (ge *GameEngine) settleReward(ctx context.Context, email string, game models.GameID, reward int64, now time.Time) (int64, error) {
	outcome := "loss"
	if reward > 0 {
		outcome = "win"
	}
	ge.metrics.ObservePlay(string(game), outcome)

	if reward > 0 {
		if _, err := ge.store.CreditReward(ctx, email, reward); err != nil {
			return 0, err
		}
		ge.metrics.ObserveReward(string(game), reward)
	}

	wallet, err := ge.store.Wallet(ctx, email)
	if err != nil {
		return 0, err
	}

	if reward > 0 {
		ge.recordTransaction(ctx, &models.Transaction{
			ID:           models.GenerateTransactionID(),
			Email:        email,
			Type:         models.TransactionTypeReward,
			Amount:       reward,
			BalanceAfter: wallet.Balance,
			Game:         game,
			Description:  fmt.Sprintf("Won %s on %s", models.FormatTaka(reward), game),
			CreatedAt:    now,
		})
	}

	ge.broadcaster.BroadcastBalance(*wallet)
	return wallet.Balance, nil
}

func (ge *GameEngine) Unlock(ctx context.Context, email string) (*models.UnlockResponse, error) {
	now := ge.now().UTC()
	until := now.Add(ge.rules.UnlockWindow)

	tokens, err := ge.store.SpendTokensForUnlock(ctx, email, ge.rules.UnlockCost, now, until)
	if err != nil {
		ge.metrics.ObserveUnlock("rejected")
		return nil, err
	}
	ge.metrics.ObserveUnlock("ok")

	if wallet, err := ge.store.Wallet(ctx, email); err == nil {
		ge.recordTransaction(ctx, &models.Transaction{
			ID:           models.GenerateTransactionID(),
			Email:        email,
			Type:         models.TransactionTypeUnlock,
			Unit:         models.UnitTokens,
			Amount:       -ge.rules.UnlockCost,
			BalanceAfter: tokens,
			Description:  fmt.Sprintf("Spent %d tokens to unlock games", ge.rules.UnlockCost),
			CreatedAt:    now,
		})
		ge.broadcaster.BroadcastBalance(*wallet)
	}

	return &models.UnlockResponse{
		Message:    fmt.Sprintf("Games unlocked until %s", until.Format(time.RFC1123)),
		Tokens:     models.Int64Ptr(tokens),
		UnlockDate: models.TimePtr(until),
	}, nil
}

// Allowances reports today's remaining free plays for every game.
func (ge *GameEngine) Allowances(ctx context.Context, email string) (map[models.GameID]models.Allowance, error) {
	now := ge.now().UTC()
	resetAt := NextReset(now)

	out := make(map[models.GameID]models.Allowance, 2)
	for _, game := range []models.GameID{models.GameLottery, models.GameDino} {
		remaining, err := ge.store.PlaysRemaining(ctx, game, email, ge.rules.FreePlaysPerDay, now)
		if err != nil {
			return nil, err
		}
		out[game] = models.Allowance{RemainingToday: remaining, NextResetAt: resetAt}
	}
	return out, nil
}

func (ge *GameEngine) GetVerificationData(ctx context.Context, email string) (*models.VerificationData, error) {
	user, err := ge.store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	return &models.VerificationData{
		ClientSeed:   user.ClientSeed,
		ServerHash:   ge.GetServerHash(),
		CurrentNonce: user.Nonce,
	}, nil
}

func (ge *GameEngine) recordTransaction(ctx context.Context, tx *models.Transaction) {
	if err := ge.store.SaveTransaction(ctx, tx); err != nil {
		ge.logger.WarnContext(ctx, "failed to record transaction",
			slog.String("email", tx.Email),
			slog.String("type", string(tx.Type)),
			slog.Any("error", err),
		)
	}
}
