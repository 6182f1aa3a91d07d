package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// GenerateID returns a collection-prefixed identifier such as "course_<uuid>".
func GenerateID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// GenerateReferralCode returns an 8 character upper-case code.
func GenerateReferralCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:8])
}

func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16) // 128 bits of entropy
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate client seed: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *RegisterRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.ReferredBy = NormalizeReferralCode(r.ReferredBy)
}

func (r *CreateCourseRequest) Validate() error {
	r.Key = strings.ToLower(strings.TrimSpace(r.Key))
	r.Name = strings.TrimSpace(r.Name)
	if r.Key == "" || strings.ContainsAny(r.Key, " /?#") {
		return fmt.Errorf("invalid course key: %q", r.Key)
	}
	if r.Name == "" {
		return fmt.Errorf("course name is required")
	}
	return nil
}

func (r *CreateVideoRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.YouTubeID) == "" {
		return fmt.Errorf("title & YouTube ID required")
	}
	if r.Order != nil && *r.Order < 0 {
		return fmt.Errorf("order must not be negative")
	}
	return nil
}

func (r *WithdrawRequest) Validate(minimum int64) error {
	if r.Amount < minimum {
		return fmt.Errorf("minimum withdrawal is %s", FormatTaka(minimum))
	}
	return nil
}

// FormatTaka renders an amount in the platform currency.
func FormatTaka(amount int64) string {
	return fmt.Sprintf("%d৳", amount)
}

func IntPtr(v int) *int       { return &v }
func Int64Ptr(v int64) *int64 { return &v }
func TimePtr(t time.Time) *time.Time {
	return &t
}
