package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learn-and-earn/internal/models"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, models.RoleAdmin, models.ParseRole("admin"))
	assert.Equal(t, models.RoleMember, models.ParseRole("member"))
	assert.Equal(t, models.RoleUser, models.ParseRole("user"))
	assert.Equal(t, models.RoleUser, models.ParseRole(""))
	assert.Equal(t, models.RoleUser, models.ParseRole("superuser"))
}

func TestPlayFreeResponseRemaining(t *testing.T) {
	resp := &models.PlayFreeResponse{}
	_, ok := resp.Remaining()
	assert.False(t, ok)

	resp.FreePlaysLeft = models.IntPtr(1)
	n, ok := resp.Remaining()
	require.True(t, ok)
	assert.Equal(t, 1, n)

	resp.RemainingPlays = models.IntPtr(2)
	n, _ = resp.Remaining()
	assert.Equal(t, 2, n, "remainingPlays wins over freePlaysLeft")
}

func TestProfileAllowanceFor(t *testing.T) {
	reset := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	p := &models.Profile{
		RemainingToday: models.IntPtr(3),
		NextResetAt:    &reset,
		Games: map[models.GameID]models.Allowance{
			models.GameDino: {RemainingToday: 1, NextResetAt: reset},
		},
	}

	a, ok := p.AllowanceFor(models.GameLottery)
	require.True(t, ok)
	assert.Equal(t, 3, a.RemainingToday)
	assert.Equal(t, reset, a.NextResetAt)

	a, ok = p.AllowanceFor(models.GameDino)
	require.True(t, ok)
	assert.Equal(t, 1, a.RemainingToday)

	p.Games = nil
	_, ok = p.AllowanceFor(models.GameDino)
	assert.False(t, ok)
}

func TestProfileUnlocked(t *testing.T) {
	now := time.Now()
	p := &models.Profile{}
	assert.False(t, p.Unlocked(now))

	p.UnlockDate = models.TimePtr(now.Add(-time.Minute))
	assert.False(t, p.Unlocked(now))

	p.UnlockDate = models.TimePtr(now.Add(time.Hour))
	assert.True(t, p.Unlocked(now))
}

func TestValidation(t *testing.T) {
	course := &models.CreateCourseRequest{Key: "  Web-Dev ", Name: " Web Development "}
	require.NoError(t, course.Validate())
	assert.Equal(t, "web-dev", course.Key)
	assert.Equal(t, "Web Development", course.Name)

	assert.Error(t, (&models.CreateCourseRequest{Key: "a b", Name: "x"}).Validate())

	assert.Error(t, (&models.CreateVideoRequest{Title: "intro"}).Validate())
	assert.Error(t, (&models.CreateVideoRequest{Title: "intro", YouTubeID: "abc", Order: models.IntPtr(-1)}).Validate())

	w := &models.WithdrawRequest{Amount: 50}
	assert.EqualError(t, w.Validate(100), "minimum withdrawal is 100৳")
	w.Amount = 100
	assert.NoError(t, w.Validate(100))
}

func TestNormalize(t *testing.T) {
	req := &models.RegisterRequest{Email: " Jane@Example.COM ", Name: " Jane ", ReferredBy: " ab12cd34 "}
	req.Normalize()
	assert.Equal(t, "jane@example.com", req.Email)
	assert.Equal(t, "Jane", req.Name)
	assert.Equal(t, "AB12CD34", req.ReferredBy)

	code := models.GenerateReferralCode()
	assert.Len(t, code, 8)
	assert.Equal(t, models.NormalizeReferralCode(code), code)

	seed, err := models.GenerateClientSeed()
	require.NoError(t, err)
	assert.Len(t, seed, 32)
}
