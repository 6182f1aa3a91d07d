package admin_test

import (
	"context"
	"errors"
	"sync"

	"learn-and-earn/internal/models"
)

var errNotFound = errors.New("not found")

// fakeAPI keeps admin data in memory and counts list reads.
type fakeAPI struct {
	mu sync.Mutex

	courses     []*models.Course
	videos      []*models.Video
	payments    []*models.Payment
	pending     []*models.User
	withdrawals []*models.Withdrawal
	members     []*models.User

	failOn    map[string]error
	listReads int
}

func (f *fakeAPI) fail(op string) error {
	if f.failOn == nil {
		return nil
	}
	return f.failOn[op]
}

func (f *fakeAPI) Courses(ctx context.Context) ([]*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReads++
	return append([]*models.Course(nil), f.courses...), nil
}

func (f *fakeAPI) CreateCourse(ctx context.Context, key, name string) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateCourse"); err != nil {
		return nil, err
	}
	c := &models.Course{ID: "course_" + key, Key: key, Name: name}
	f.courses = append(f.courses, c)
	return c, nil
}

func (f *fakeAPI) RenameCourse(ctx context.Context, id, name string) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.courses {
		if c.ID == id {
			c.Name = name
			return c, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeAPI) DeleteCourse(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.courses {
		if c.ID == id {
			f.courses = append(f.courses[:i], f.courses[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (f *fakeAPI) Videos(ctx context.Context, courseKey string) ([]*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReads++
	var out []*models.Video
	for _, v := range f.videos {
		if v.CourseKey == courseKey {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateVideo(ctx context.Context, req models.CreateVideoRequest) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := &models.Video{ID: "video_" + req.YouTubeID, CourseKey: req.CourseKey, Title: req.Title, YouTubeID: req.YouTubeID}
	f.videos = append(f.videos, v)
	return v, nil
}

func (f *fakeAPI) UpdateVideo(ctx context.Context, id string, patch models.VideoPatch) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.videos {
		if v.ID == id {
			if patch.Title != nil {
				v.Title = *patch.Title
			}
			return v, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeAPI) DeleteVideo(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.videos {
		if v.ID == id {
			f.videos = append(f.videos[:i], f.videos[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (f *fakeAPI) Payments(ctx context.Context) ([]*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReads++
	return append([]*models.Payment(nil), f.payments...), nil
}

func (f *fakeAPI) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ID == id {
			p.Status = status
			return p, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeAPI) PendingUsers(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReads++
	return append([]*models.User(nil), f.pending...), nil
}

func (f *fakeAPI) ApprovePendingUser(ctx context.Context, email string) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.pending {
		if u.Email == email {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			u.Role = models.RoleMember
			f.members = append(f.members, u)
			return &models.ActionResponse{Success: true, Message: u.Name + " is now a member"}, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeAPI) Withdrawals(ctx context.Context, email string) ([]*models.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReads++
	return append([]*models.Withdrawal(nil), f.withdrawals...), nil
}

func (f *fakeAPI) settle(id string, status models.WithdrawalStatus) (*models.WithdrawResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.withdrawals {
		if w.ID == id {
			if w.Status != models.WithdrawalPending {
				return nil, errors.New("withdrawal already settled")
			}
			w.Status = status
			return &models.WithdrawResponse{Withdrawal: w}, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeAPI) ApproveWithdrawal(ctx context.Context, id string) (*models.WithdrawResponse, error) {
	return f.settle(id, models.WithdrawalApproved)
}

func (f *fakeAPI) RejectWithdrawal(ctx context.Context, id string) (*models.WithdrawResponse, error) {
	return f.settle(id, models.WithdrawalRejected)
}

func (f *fakeAPI) Members(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReads++
	return append([]*models.User(nil), f.members...), nil
}

func (f *fakeAPI) MemberProfile(ctx context.Context, email string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.members {
		if u.Email == email {
			return &models.Profile{Email: u.Email, Name: u.Name, Role: u.Role}, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeAPI) reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listReads
}
