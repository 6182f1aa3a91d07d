package admin

import (
	"context"
	"fmt"

	"learn-and-earn/internal/models"
)

// API is the admin surface of the backend.
type API interface {
	Courses(ctx context.Context) ([]*models.Course, error)
	CreateCourse(ctx context.Context, key, name string) (*models.Course, error)
	RenameCourse(ctx context.Context, id, name string) (*models.Course, error)
	DeleteCourse(ctx context.Context, id string) error

	Videos(ctx context.Context, courseKey string) ([]*models.Video, error)
	CreateVideo(ctx context.Context, req models.CreateVideoRequest) (*models.Video, error)
	UpdateVideo(ctx context.Context, id string, patch models.VideoPatch) (*models.Video, error)
	DeleteVideo(ctx context.Context, id string) error

	Payments(ctx context.Context) ([]*models.Payment, error)
	SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error)

	PendingUsers(ctx context.Context) ([]*models.User, error)
	ApprovePendingUser(ctx context.Context, email string) (*models.ActionResponse, error)

	Withdrawals(ctx context.Context, email string) ([]*models.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id string) (*models.WithdrawResponse, error)
	RejectWithdrawal(ctx context.Context, id string) (*models.WithdrawResponse, error)

	Members(ctx context.Context) ([]*models.User, error)
	MemberProfile(ctx context.Context, email string) (*models.Profile, error)
}

// Service runs admin actions. Every mutation returns the list it touched,
// re-read from the backend after the action succeeded; a failed action
// returns no list so the caller keeps showing what it had.
type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

func (s *Service) Courses(ctx context.Context) ([]*models.Course, error) {
	return s.api.Courses(ctx)
}

func (s *Service) CreateCourse(ctx context.Context, key, name string) ([]*models.Course, error) {
	req := models.CreateCourseRequest{Key: key, Name: name}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.api.CreateCourse(ctx, req.Key, req.Name); err != nil {
		return nil, fmt.Errorf("create course %q: %w", req.Key, err)
	}
	return s.api.Courses(ctx)
}

func (s *Service) RenameCourse(ctx context.Context, id, name string) ([]*models.Course, error) {
	if _, err := s.api.RenameCourse(ctx, id, name); err != nil {
		return nil, fmt.Errorf("rename course %s: %w", id, err)
	}
	return s.api.Courses(ctx)
}

func (s *Service) DeleteCourse(ctx context.Context, id string) ([]*models.Course, error) {
	if err := s.api.DeleteCourse(ctx, id); err != nil {
		return nil, fmt.Errorf("delete course %s: %w", id, err)
	}
	return s.api.Courses(ctx)
}

func (s *Service) Videos(ctx context.Context, courseKey string) ([]*models.Video, error) {
	return s.api.Videos(ctx, courseKey)
}

func (s *Service) CreateVideo(ctx context.Context, req models.CreateVideoRequest) ([]*models.Video, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.api.CreateVideo(ctx, req); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	return s.api.Videos(ctx, req.CourseKey)
}

func (s *Service) UpdateVideo(ctx context.Context, courseKey, id string, patch models.VideoPatch) ([]*models.Video, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("nothing to update")
	}
	if _, err := s.api.UpdateVideo(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("update video %s: %w", id, err)
	}
	return s.api.Videos(ctx, courseKey)
}

func (s *Service) DeleteVideo(ctx context.Context, courseKey, id string) ([]*models.Video, error) {
	if err := s.api.DeleteVideo(ctx, id); err != nil {
		return nil, fmt.Errorf("delete video %s: %w", id, err)
	}
	return s.api.Videos(ctx, courseKey)
}

func (s *Service) Payments(ctx context.Context) ([]*models.Payment, error) {
	return s.api.Payments(ctx)
}

func (s *Service) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) ([]*models.Payment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid payment status %q", status)
	}
	if _, err := s.api.SetPaymentStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("set payment %s to %s: %w", id, status, err)
	}
	return s.api.Payments(ctx)
}

func (s *Service) PendingUsers(ctx context.Context) ([]*models.User, error) {
	return s.api.PendingUsers(ctx)
}

func (s *Service) ApprovePendingUser(ctx context.Context, email string) ([]*models.User, error) {
	if _, err := s.api.ApprovePendingUser(ctx, email); err != nil {
		return nil, fmt.Errorf("approve %s: %w", email, err)
	}
	return s.api.PendingUsers(ctx)
}

func (s *Service) Withdrawals(ctx context.Context) ([]*models.Withdrawal, error) {
	return s.api.Withdrawals(ctx, "")
}

// SettleWithdrawal approves or rejects one pending withdrawal.
func (s *Service) SettleWithdrawal(ctx context.Context, id string, approve bool) ([]*models.Withdrawal, error) {
	var err error
	if approve {
		_, err = s.api.ApproveWithdrawal(ctx, id)
	} else {
		_, err = s.api.RejectWithdrawal(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("settle withdrawal %s: %w", id, err)
	}
	return s.api.Withdrawals(ctx, "")
}

func (s *Service) Members(ctx context.Context) ([]*models.User, error) {
	return s.api.Members(ctx)
}

func (s *Service) MemberProfile(ctx context.Context, email string) (*models.Profile, error) {
	return s.api.MemberProfile(ctx, models.NormalizeEmail(email))
}
