package services

import "time"

const (
	KeyUser             = "user:%s"
	KeyUsers            = "users"
	KeyReferral         = "referral:%s"
	KeyUserTeam         = "user:%s:team"
	KeyPendingUsers     = "users:pending"
	KeyPlays            = "plays:%s:%s:%s" // game, email, yyyymmdd
	KeyTransaction      = "transaction:%s"
	KeyUserTransactions = "user:%s:transactions"
	KeyRateLimit        = "ratelimit:%s:%s"

	KeyCourse       = "course:%s"
	KeyCourseByKey  = "course:key:%s"
	KeyCourses      = "courses"
	KeyVideo        = "video:%s"
	KeyCourseVideos = "course:%s:videos"

	KeyPayment         = "payment:%s"
	KeyPayments        = "payments"
	KeyWithdrawal      = "withdrawal:%s"
	KeyWithdrawals     = "withdrawals"
	KeyUserWithdrawals = "user:%s:withdrawals"

	TTLTransaction = 30 * 24 * time.Hour // 30 days

	MaxTransactionsPerUser = 100
)
