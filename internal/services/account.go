package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"learn-and-earn/internal/config"
	"learn-and-earn/internal/metrics"
	"learn-and-earn/internal/models"
)

// AccountService owns registration, profiles, referrals, membership
// payments and withdrawals.
type AccountService struct {
	store       *RedisService
	games       *GameEngine
	jwt         *JWTService
	rules       config.GameRules
	admins      map[string]bool
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewAccountService(store *RedisService, games *GameEngine, jwt *JWTService, cfg *config.Config, broadcaster Broadcaster, m *metrics.Metrics, logger *slog.Logger) *AccountService {
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		admins[models.NormalizeEmail(email)] = true
	}
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		store:       store,
		games:       games,
		jwt:         jwt,
		rules:       cfg.Games,
		admins:      admins,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *AccountService) SetBroadcaster(b Broadcaster) {
	if b != nil {
		s.broadcaster = b
	}
}

const referralCodeAttempts = 5

func (s *AccountService) Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error) {
	req.Normalize()

	if req.ReferredBy != "" {
		if _, err := s.store.GetUserByReferral(ctx, req.ReferredBy); err != nil {
			return nil, fmt.Errorf("unknown referral code %s: %w", req.ReferredBy, ErrNotFound)
		}
	}

	seed, err := models.GenerateClientSeed()
	if err != nil {
		return nil, err
	}

	role := models.RoleUser
	if s.admins[req.Email] {
		role = models.RoleAdmin
	}

	user := &models.User{
		Email:      req.Email,
		Name:       req.Name,
		PhotoURL:   req.PhotoURL,
		Phone:      req.Phone,
		Role:       role,
		Status:     models.UserStatusActive,
		ReferredBy: req.ReferredBy,
		ClientSeed: seed,
		CreatedAt:  s.now().UnixMilli(),
	}

	for attempt := 0; ; attempt++ {
		user.ReferralCode = models.GenerateReferralCode()
		err = s.store.CreateUser(ctx, user)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConflict) || attempt == referralCodeAttempts-1 {
			return nil, err
		}
		if _, getErr := s.store.GetUser(ctx, user.Email); getErr == nil {
			return nil, err
		}
	}

	token, err := s.jwt.GenerateToken(user.Email)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("email", user.Email),
		slog.String("referred_by", user.ReferredBy),
	)
	return &models.RegisterResponse{User: user, Token: token}, nil
}

// IssueToken signs a session token for an existing account.
func (s *AccountService) IssueToken(ctx context.Context, email string) (string, error) {
	email = models.NormalizeEmail(email)
	if _, err := s.store.GetUser(ctx, email); err != nil {
		return "", err
	}
	return s.jwt.GenerateToken(email)
}

func (s *AccountService) DeleteUser(ctx context.Context, email string) error {
	return s.store.DeleteUser(ctx, models.NormalizeEmail(email))
}

func (s *AccountService) Profile(ctx context.Context, email string) (*models.Profile, error) {
	user, err := s.store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	allowances, err := s.games.Allowances(ctx, email)
	if err != nil {
		return nil, err
	}
	lottery := allowances[models.GameLottery]

	profile := &models.Profile{
		Email:          user.Email,
		Name:           user.Name,
		PhotoURL:       user.PhotoURL,
		Role:           s.effectiveRole(user),
		Status:         user.Status,
		ReferralCode:   user.ReferralCode,
		Balance:        user.Balance,
		LockedBalance:  user.LockedBalance,
		Profits:        user.Profits,
		Tokens:         user.Tokens,
		UnlockDate:     user.UnlockDate(),
		RemainingToday: models.IntPtr(lottery.RemainingToday),
		NextResetAt:    models.TimePtr(lottery.NextResetAt),
		Games:          allowances,
	}

	if user.ReferredBy != "" {
		if referrer, err := s.store.GetUserByReferral(ctx, user.ReferredBy); err == nil {
			profile.Referrer = &models.Referrer{
				Name:         referrer.Name,
				Email:        referrer.Email,
				ReferralCode: referrer.ReferralCode,
			}
		}
	}

	return profile, nil
}

func (s *AccountService) Team(ctx context.Context, email string) ([]models.TeamMember, error) {
	users, err := s.store.GetTeam(ctx, email)
	if err != nil {
		return nil, err
	}

	team := make([]models.TeamMember, 0, len(users))
	for _, u := range users {
		team = append(team, models.TeamMember{
			Name:     u.Name,
			Email:    u.Email,
			PhotoURL: u.PhotoURL,
			Role:     u.Role,
			Status:   u.Status,
			JoinedAt: time.UnixMilli(u.CreatedAt).UTC(),
		})
	}
	return team, nil
}

func (s *AccountService) UpdatePhoto(ctx context.Context, email, photoURL string) error {
	return s.store.UpdateUserFields(ctx, email, "photo_url", photoURL)
}

// Role resolves an account's role by referral code, falling back to email.
func (s *AccountService) Role(ctx context.Context, email, referralCode string) (models.Role, error) {
	var (
		user *models.User
		err  error
	)
	if code := models.NormalizeReferralCode(referralCode); code != "" {
		user, err = s.store.GetUserByReferral(ctx, code)
	} else {
		user, err = s.store.GetUser(ctx, models.NormalizeEmail(email))
	}
	if err != nil {
		return "", err
	}
	return s.effectiveRole(user), nil
}

func (s *AccountService) effectiveRole(u *models.User) models.Role {
	if s.admins[u.Email] {
		return models.RoleAdmin
	}
	return models.ParseRole(string(u.Role))
}

func (s *AccountService) Transactions(ctx context.Context, email string, limit int64) ([]*models.Transaction, error) {
	return s.store.GetUserTransactions(ctx, email, limit)
}

func (s *AccountService) RequestWithdrawal(ctx context.Context, email string, req *models.WithdrawRequest) (*models.Withdrawal, error) {
	if err := req.Validate(s.rules.MinWithdrawal); err != nil {
		return nil, invalidInput(err)
	}

	user, err := s.store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	w := &models.Withdrawal{
		ID:          models.GenerateID("withdrawal"),
		Email:       email,
		Name:        user.Name,
		Amount:      req.Amount,
		Status:      models.WithdrawalPending,
		RequestedAt: now.UnixMilli(),
	}

	balance, err := s.store.CreateWithdrawal(ctx, w)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveWithdrawal(string(models.WithdrawalPending))

	s.recordTransaction(ctx, &models.Transaction{
		ID:           models.GenerateTransactionID(),
		Email:        email,
		Type:         models.TransactionTypeWithdraw,
		Amount:       -req.Amount,
		BalanceAfter: balance,
		Description:  fmt.Sprintf("Withdrawal of %s requested", models.FormatTaka(req.Amount)),
		CreatedAt:    now,
	})
	s.pushWallet(ctx, email)

	return w, nil
}

func (s *AccountService) ListWithdrawals(ctx context.Context, email string) ([]*models.Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, email)
}

func (s *AccountService) SettleWithdrawal(ctx context.Context, id string, approve bool) (*models.Withdrawal, error) {
	now := s.now().UTC()
	w, err := s.store.SettleWithdrawal(ctx, id, approve, now)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveWithdrawal(string(w.Status))

	if !approve {
		if wallet, err := s.store.Wallet(ctx, w.Email); err == nil {
			s.recordTransaction(ctx, &models.Transaction{
				ID:           models.GenerateTransactionID(),
				Email:        w.Email,
				Type:         models.TransactionTypeRefund,
				Amount:       w.Amount,
				BalanceAfter: wallet.Balance,
				Description:  fmt.Sprintf("Withdrawal of %s rejected and refunded", models.FormatTaka(w.Amount)),
				CreatedAt:    now,
			})
		}
	}
	s.pushWallet(ctx, w.Email)

	s.logger.InfoContext(ctx, "withdrawal settled",
		slog.String("id", id),
		slog.String("status", string(w.Status)),
	)
	return w, nil
}

// SubmitPayment records a membership payment and queues the payer for
// admin approval.
func (s *AccountService) SubmitPayment(ctx context.Context, email string, req *models.PaymentRequest) (*models.Payment, error) {
	user, err := s.store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if s.effectiveRole(user) != models.RoleUser {
		return nil, fmt.Errorf("payment from %s: %w", email, ErrAlreadyMember)
	}

	p := &models.Payment{
		ID:         models.GenerateID("payment"),
		Name:       req.Name,
		Email:      email,
		Phone:      req.Phone,
		Screenshot: req.Screenshot,
		Status:     models.PaymentPending,
		Date:       s.now().UnixMilli(),
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	if err := s.store.UpdateUserFields(ctx, email, "status", string(models.UserStatusPending)); err != nil {
		return nil, err
	}
	if err := s.store.AddPendingUser(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to queue pending user: %w", err)
	}
	return p, nil
}

func (s *AccountService) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	return s.store.ListPayments(ctx)
}

func (s *AccountService) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error) {
	if !status.Valid() {
		return nil, invalidInput(fmt.Errorf("invalid payment status %q", status))
	}
	return s.store.SetPaymentStatus(ctx, id, status)
}

func (s *AccountService) PendingUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.ListPendingUsers(ctx)
}

// ApprovePendingUser promotes a pending account to member. The referrer's
// bonus is paid only on the approval that actually changes the role.
func (s *AccountService) ApprovePendingUser(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	removed, err := s.store.RemovePendingUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue pending user: %w", err)
	}
	if !removed {
		return nil, fmt.Errorf("pending user %s: %w", email, ErrNotFound)
	}

	promoted, err := s.store.PromoteToMember(ctx, email)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	if promoted && user.ReferredBy != "" && s.rules.ReferralBonusTokens > 0 {
		s.creditReferrer(ctx, user)
	}
	return user, nil
}

func (s *AccountService) creditReferrer(ctx context.Context, user *models.User) {
	referrer, err := s.store.GetUserByReferral(ctx, user.ReferredBy)
	if err != nil {
		s.logger.WarnContext(ctx, "referrer not found",
			slog.String("email", user.Email),
			slog.String("referred_by", user.ReferredBy),
		)
		return
	}

	tokens, err := s.store.AddTokens(ctx, referrer.Email, s.rules.ReferralBonusTokens)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to credit referral bonus",
			slog.String("referrer", referrer.Email),
			slog.Any("error", err),
		)
		return
	}

	s.recordTransaction(ctx, &models.Transaction{
		ID:           models.GenerateTransactionID(),
		Email:        referrer.Email,
		Type:         models.TransactionTypeReferral,
		Unit:         models.UnitTokens,
		Amount:       s.rules.ReferralBonusTokens,
		BalanceAfter: tokens,
		Description:  fmt.Sprintf("Referral bonus for %s", user.Email),
		CreatedAt:    s.now().UTC(),
	})
	s.pushWallet(ctx, referrer.Email)
}

func (s *AccountService) Members(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	members := make([]*models.User, 0, len(users))
	for _, u := range users {
		if models.ParseRole(string(u.Role)) == models.RoleMember {
			members = append(members, u)
		}
	}
	return members, nil
}

func (s *AccountService) pushWallet(ctx context.Context, email string) {
	wallet, err := s.store.Wallet(ctx, email)
	if err != nil {
		return
	}
	s.broadcaster.BroadcastBalance(*wallet)
}

func (s *AccountService) recordTransaction(ctx context.Context, tx *models.Transaction) {
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		s.logger.WarnContext(ctx, "failed to record transaction",
			slog.String("email", tx.Email),
			slog.Any("error", err),
		)
	}
}
