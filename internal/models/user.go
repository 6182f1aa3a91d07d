package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleUser   Role = "user"
)

// ParseRole maps unknown or empty values to the least privileged role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleMember:
		return Role(s)
	default:
		return RoleUser
	}
}

type UserStatus string

const (
	UserStatusPending UserStatus = "pending"
	UserStatusActive  UserStatus = "active"
)

// User is the server-side account record. Timestamps are unix milliseconds so
// the struct can be written to and scanned from a Redis hash directly.
type User struct {
	Email         string     `json:"email" redis:"email"`
	Name          string     `json:"name" redis:"name"`
	PhotoURL      string     `json:"photoURL,omitempty" redis:"photo_url"`
	Phone         string     `json:"phone,omitempty" redis:"phone"`
	Role          Role       `json:"role" redis:"role"`
	Status        UserStatus `json:"status" redis:"status"`
	ReferralCode  string     `json:"referralCode" redis:"referral_code"`
	ReferredBy    string     `json:"referredBy,omitempty" redis:"referred_by"`
	Balance       int64      `json:"balance" redis:"balance"`
	LockedBalance int64      `json:"lockedBalance" redis:"locked_balance"`
	Profits       int64      `json:"profits" redis:"profits"`
	Tokens        int64      `json:"tokens" redis:"tokens"`
	UnlockedUntil int64      `json:"unlockedUntil,omitempty" redis:"unlocked_until"`
	Nonce         int64      `json:"-" redis:"nonce"`
	ClientSeed    string     `json:"-" redis:"client_seed"`
	CreatedAt     int64      `json:"createdAt" redis:"created_at"`
}

func (u *User) Unlocked(now time.Time) bool {
	return u.UnlockedUntil > now.UnixMilli()
}

func (u *User) UnlockDate() *time.Time {
	if u.UnlockedUntil == 0 {
		return nil
	}
	t := time.UnixMilli(u.UnlockedUntil).UTC()
	return &t
}

// Identity is what the external identity provider knows about the signed-in
// person. The role is resolved separately.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

type Referrer struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	ReferralCode string `json:"referralCode"`
}

type TeamMember struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	PhotoURL string     `json:"photoURL,omitempty"`
	Role     Role       `json:"role"`
	Status   UserStatus `json:"status"`
	JoinedAt time.Time  `json:"joinedAt"`
}

type TeamResponse struct {
	Team []TeamMember `json:"team"`
}

// Allowance is the daily free-play budget of one game.
type Allowance struct {
	RemainingToday int       `json:"remainingToday"`
	NextResetAt    time.Time `json:"nextResetAt"`
}

// Profile is the GET /my-profile payload. RemainingToday and NextResetAt at
// the top level mirror the lottery allowance.
type Profile struct {
	Email          string               `json:"email"`
	Name           string               `json:"name"`
	PhotoURL       string               `json:"photoURL,omitempty"`
	Role           Role                 `json:"role"`
	Status         UserStatus           `json:"status"`
	ReferralCode   string               `json:"referralCode"`
	Referrer       *Referrer            `json:"referrer,omitempty"`
	Balance        int64                `json:"balance"`
	LockedBalance  int64                `json:"lockedBalance"`
	Profits        int64                `json:"profits"`
	Tokens         int64                `json:"tokens"`
	UnlockDate     *time.Time           `json:"unlockDate,omitempty"`
	RemainingToday *int                 `json:"remainingToday,omitempty"`
	NextResetAt    *time.Time           `json:"nextResetAt,omitempty"`
	Games          map[GameID]Allowance `json:"games,omitempty"`
}

func (p *Profile) Unlocked(now time.Time) bool {
	return p.UnlockDate != nil && p.UnlockDate.After(now)
}

// AllowanceFor prefers the per-game entry and falls back to the top-level
// lottery fields.
func (p *Profile) AllowanceFor(game GameID) (Allowance, bool) {
	if a, ok := p.Games[game]; ok {
		return a, true
	}
	if game != GameLottery || p.RemainingToday == nil {
		return Allowance{}, false
	}
	a := Allowance{RemainingToday: *p.RemainingToday}
	if p.NextResetAt != nil {
		a.NextResetAt = *p.NextResetAt
	}
	return a, true
}

func (p *Profile) Identity() Identity {
	return Identity{
		ID:          p.ReferralCode,
		Email:       p.Email,
		DisplayName: p.Name,
		PhotoURL:    p.PhotoURL,
	}
}

type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required"`
	PhotoURL   string `json:"photoURL"`
	Phone      string `json:"phone"`
	ReferredBy string `json:"referredBy"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type TokenRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type RoleResponse struct {
	Role Role `json:"role"`
}

type UpdatePhotoRequest struct {
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL" binding:"required,url"`
}
