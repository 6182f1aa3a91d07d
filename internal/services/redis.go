package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"learn-and-earn/internal/config"
	"learn-and-earn/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

// NewRedisServiceWithClient wraps an existing client without pinging it.
func NewRedisServiceWithClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func userKey(email string) string {
	return fmt.Sprintf(KeyUser, email)
}

func userFields(u *models.User) []interface{} {
	return []interface{}{
		"email", u.Email,
		"name", u.Name,
		"photo_url", u.PhotoURL,
		"phone", u.Phone,
		"role", string(u.Role),
		"status", string(u.Status),
		"referral_code", u.ReferralCode,
		"referred_by", u.ReferredBy,
		"balance", u.Balance,
		"locked_balance", u.LockedBalance,
		"profits", u.Profits,
		"tokens", u.Tokens,
		"unlocked_until", u.UnlockedUntil,
		"nonce", u.Nonce,
		"client_seed", u.ClientSeed,
		"created_at", u.CreatedAt,
	}
}

var createUserScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 1 then
		return 0
	end
	if redis.call("SETNX", KEYS[2], ARGV[1]) == 0 then
		return -1
	end
	redis.call("HSET", KEYS[1], unpack(ARGV, 3))
	redis.call("ZADD", KEYS[3], ARGV[2], ARGV[1])
	return 1
`)

// CreateUser stores a new account and reserves its referral code.
func (s *RedisService) CreateUser(ctx context.Context, u *models.User) error {
	args := append([]interface{}{u.Email, u.CreatedAt}, userFields(u)...)
	keys := []string{userKey(u.Email), fmt.Sprintf(KeyReferral, u.ReferralCode), KeyUsers}

	res, err := createUserScript.Run(ctx, s.client, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	switch res {
	case 0:
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	case -1:
		return fmt.Errorf("referral code %s: %w", u.ReferralCode, ErrConflict)
	}

	if u.ReferredBy != "" {
		referrer, err := s.GetUserByReferral(ctx, u.ReferredBy)
		if err == nil {
			s.client.SAdd(ctx, fmt.Sprintf(KeyUserTeam, referrer.Email), u.Email)
		}
	}

	return nil
}

func (s *RedisService) GetUser(ctx context.Context, email string) (*models.User, error) {
	cmd := s.client.HGetAll(ctx, userKey(email))
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}

	var user models.User
	if err := cmd.Scan(&user); err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (s *RedisService) GetUserByReferral(ctx context.Context, code string) (*models.User, error) {
	email, err := s.client.Get(ctx, fmt.Sprintf(KeyReferral, code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("referral %s: %w", code, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referral: %w", err)
	}
	return s.GetUser(ctx, email)
}

// ListUsers returns accounts oldest first.
func (s *RedisService) ListUsers(ctx context.Context) ([]*models.User, error) {
	emails, err := s.client.ZRange(ctx, KeyUsers, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return s.usersByEmail(ctx, emails), nil
}

func (s *RedisService) usersByEmail(ctx context.Context, emails []string) []*models.User {
	users := make([]*models.User, 0, len(emails))
	for _, email := range emails {
		user, err := s.GetUser(ctx, email)
		if err != nil {
			continue
		}
		users = append(users, user)
	}
	return users
}

func (s *RedisService) UpdateUserFields(ctx context.Context, email string, values ...interface{}) error {
	exists, err := s.client.Exists(ctx, userKey(email)).Result()
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}
	return s.client.HSet(ctx, userKey(email), values...).Err()
}

func (s *RedisService) DeleteUser(ctx context.Context, email string) error {
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, userKey(email), fmt.Sprintf(KeyUserTeam, email))
		pipe.Del(ctx, fmt.Sprintf(KeyReferral, user.ReferralCode))
		pipe.ZRem(ctx, KeyUsers, email)
		pipe.SRem(ctx, KeyPendingUsers, email)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if user.ReferredBy != "" {
		if referrer, err := s.GetUserByReferral(ctx, user.ReferredBy); err == nil {
			s.client.SRem(ctx, fmt.Sprintf(KeyUserTeam, referrer.Email), email)
		}
	}
	return nil
}

func (s *RedisService) GetTeam(ctx context.Context, email string) ([]*models.User, error) {
	emails, err := s.client.SMembers(ctx, fmt.Sprintf(KeyUserTeam, email)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return s.usersByEmail(ctx, emails), nil
}

func (s *RedisService) AddPendingUser(ctx context.Context, email string) error {
	return s.client.SAdd(ctx, KeyPendingUsers, email).Err()
}

func (s *RedisService) RemovePendingUser(ctx context.Context, email string) (bool, error) {
	n, err := s.client.SRem(ctx, KeyPendingUsers, email).Result()
	return n > 0, err
}

func (s *RedisService) ListPendingUsers(ctx context.Context) ([]*models.User, error) {
	emails, err := s.client.SMembers(ctx, KeyPendingUsers).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending users: %w", err)
	}
	return s.usersByEmail(ctx, emails), nil
}

// Wallet reads the balance-relevant fields of an account.
func (s *RedisService) Wallet(ctx context.Context, email string) (*models.BalanceUpdate, error) {
	vals, err := s.client.HMGet(ctx, userKey(email), "email", "balance", "locked_balance", "tokens").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if vals[0] == nil {
		return nil, fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}

	return &models.BalanceUpdate{
		Email:         email,
		Balance:       parseInt(vals[1]),
		LockedBalance: parseInt(vals[2]),
		Tokens:        parseInt(vals[3]),
		At:            time.Now().UTC(),
	}, nil
}

func parseInt(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func playsKey(game models.GameID, email string, day time.Time) string {
	return fmt.Sprintf(KeyPlays, game, email, day.UTC().Format("20060102"))
}

var consumePlayScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[2]) == 0 then
		return -3
	end

	local unlocked = tonumber(redis.call("HGET", KEYS[2], "unlocked_until") or "0")
	if unlocked <= tonumber(ARGV[3]) then
		return -2
	end

	local used = tonumber(redis.call("GET", KEYS[1]) or "0")
	local limit = tonumber(ARGV[1])
	if used >= limit then
		return -1
	end

	used = redis.call("INCR", KEYS[1])
	redis.call("EXPIREAT", KEYS[1], ARGV[2])
	return limit - used
`)

// ConsumePlay spends one free play of today's budget and returns what is
// left. The account must hold an unlock that is still valid at now.
func (s *RedisService) ConsumePlay(ctx context.Context, game models.GameID, email string, limit int, now, resetAt time.Time) (int, error) {
	keys := []string{playsKey(game, email, now), userKey(email)}
	res, err := consumePlayScript.Run(ctx, s.client, keys, limit, resetAt.Unix(), now.UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to consume play: %w", err)
	}

	switch res {
	case -1:
		return 0, ErrNoPlaysLeft
	case -2:
		return 0, ErrGamesLocked
	case -3:
		return 0, fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}
	return res, nil
}

func (s *RedisService) PlaysRemaining(ctx context.Context, game models.GameID, email string, limit int, now time.Time) (int, error) {
	used, err := s.client.Get(ctx, playsKey(game, email, now)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to get plays: %w", err)
	}
	if used >= limit {
		return 0, nil
	}
	return limit - used, nil
}

var unlockScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 0 then
		return -3
	end

	local until = tonumber(redis.call("HGET", KEYS[1], "unlocked_until") or "0")
	if until > tonumber(ARGV[3]) then
		return -2
	end

	local tokens = tonumber(redis.call("HGET", KEYS[1], "tokens") or "0")
	local cost = tonumber(ARGV[1])
	if tokens < cost then
		return -1
	end

	redis.call("HINCRBY", KEYS[1], "tokens", "-" .. ARGV[1])
	redis.call("HSET", KEYS[1], "unlocked_until", ARGV[2])
	return tokens - cost
`)

// SpendTokensForUnlock atomically spends cost tokens and opens the games
// until the given instant.
func (s *RedisService) SpendTokensForUnlock(ctx context.Context, email string, cost int64, now, until time.Time) (int64, error) {
	res, err := unlockScript.Run(ctx, s.client, []string{userKey(email)}, cost, until.UnixMilli(), now.UnixMilli()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to unlock games: %w", err)
	}

	switch res {
	case -1:
		return 0, ErrInsufficientTokens
	case -2:
		return 0, ErrAlreadyUnlocked
	case -3:
		return 0, fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}
	return res, nil
}

var promoteMemberScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 0 then
		return -1
	end

	local role = redis.call("HGET", KEYS[1], "role")
	redis.call("HSET", KEYS[1], "role", ARGV[1], "status", ARGV[2])
	if role == ARGV[1] then
		return 0
	end
	return 1
`)

// PromoteToMember makes the account an active member. It reports whether
// the stored role changed, so repeated approvals can be told apart.
func (s *RedisService) PromoteToMember(ctx context.Context, email string) (bool, error) {
	res, err := promoteMemberScript.Run(ctx, s.client, []string{userKey(email)},
		string(models.RoleMember), string(models.UserStatusActive)).Int()
	if err != nil {
		return false, fmt.Errorf("failed to promote member: %w", err)
	}
	if res < 0 {
		return false, fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}
	return res == 1, nil
}

// CreditReward adds a game or referral reward to balance and lifetime profits.
func (s *RedisService) CreditReward(ctx context.Context, email string, amount int64) (int64, error) {
	var balance *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		balance = pipe.HIncrBy(ctx, userKey(email), "balance", amount)
		pipe.HIncrBy(ctx, userKey(email), "profits", amount)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to credit reward: %w", err)
	}
	return balance.Val(), nil
}

func (s *RedisService) AddTokens(ctx context.Context, email string, n int64) (int64, error) {
	tokens, err := s.client.HIncrBy(ctx, userKey(email), "tokens", n).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to add tokens: %w", err)
	}
	return tokens, nil
}

// NextNonce returns the account's client seed and reserves the next nonce.
func (s *RedisService) NextNonce(ctx context.Context, email string) (string, int64, error) {
	var seed *redis.StringCmd
	var nonce *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		seed = pipe.HGet(ctx, userKey(email), "client_seed")
		nonce = pipe.HIncrBy(ctx, userKey(email), "nonce", 1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", 0, fmt.Errorf("failed to reserve nonce: %w", err)
	}
	return seed.Val(), nonce.Val() - 1, nil
}

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)
	if tx.Unit == "" {
		tx.Unit = tx.Type.Unit()
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	if err := s.client.Set(ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.Email)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.UnixMilli()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to user transactions: %w", err)
	}

	s.client.ZRemRangeByRank(ctx, userTxKey, 0, -(MaxTransactionsPerUser + 1))

	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, email string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > MaxTransactionsPerUser {
		limit = 50
	}

	txIDs, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserTransactions, email), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}

	transactions := make([]*models.Transaction, 0, len(txIDs))
	for _, txID := range txIDs {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyTransaction, txID)).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}

		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, subject, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, subject, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, subject, action)).Err()
}
