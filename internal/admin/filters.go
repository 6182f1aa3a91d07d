package admin

import (
	"strings"

	"learn-and-earn/internal/models"
)

// StatusAll matches every status in the status filters.
const StatusAll = "all"

type Badge string

const (
	BadgeSuccess Badge = "success"
	BadgeDanger  Badge = "danger"
	BadgeWarning Badge = "warning"
	BadgeNeutral Badge = "neutral"
)

func StatusBadge(status string) Badge {
	switch strings.ToLower(status) {
	case "approved":
		return BadgeSuccess
	case "rejected":
		return BadgeDanger
	case "pending":
		return BadgeWarning
	default:
		return BadgeNeutral
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// FilterUsers keeps users whose name or email contains query.
func FilterUsers(users []*models.User, query string) []*models.User {
	query = strings.TrimSpace(query)
	if query == "" {
		return users
	}
	return filter(users, func(u *models.User) bool {
		return containsFold(u.Name, query) || containsFold(u.Email, query)
	})
}

func FilterVideos(videos []*models.Video, query string) []*models.Video {
	query = strings.TrimSpace(query)
	if query == "" {
		return videos
	}
	return filter(videos, func(v *models.Video) bool {
		return containsFold(v.Title, query)
	})
}

func statusMatches(status, want string) bool {
	return want == "" || want == StatusAll || status == want
}

func FilterPayments(payments []*models.Payment, status string) []*models.Payment {
	return filter(payments, func(p *models.Payment) bool {
		return statusMatches(string(p.Status), status)
	})
}

func FilterWithdrawals(ws []*models.Withdrawal, status string) []*models.Withdrawal {
	return filter(ws, func(w *models.Withdrawal) bool {
		return statusMatches(string(w.Status), status)
	})
}

// CountByStatus tallies items per status. The StatusAll key holds the total.
func CountByStatus[T any](items []T, statusOf func(T) string) map[string]int {
	counts := map[string]int{StatusAll: len(items)}
	for _, item := range items {
		counts[statusOf(item)]++
	}
	return counts
}

func PaymentStatus(p *models.Payment) string       { return string(p.Status) }
func WithdrawalStatus(w *models.Withdrawal) string { return string(w.Status) }
