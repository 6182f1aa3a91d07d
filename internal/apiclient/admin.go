package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"learn-and-earn/internal/models"
)

func (c *Client) CreateCourse(ctx context.Context, key, name string) (*models.Course, error) {
	var course models.Course
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/courses",
		body:   models.CreateCourseRequest{Key: key, Name: name},
	}, &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) RenameCourse(ctx context.Context, id, name string) (*models.Course, error) {
	var course models.Course
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/courses/" + url.PathEscape(id),
		body:   models.RenameCourseRequest{Name: name},
	}, &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/courses/" + url.PathEscape(id)}, nil)
}

func (c *Client) CreateVideo(ctx context.Context, req models.CreateVideoRequest) (*models.Video, error) {
	var video models.Video
	if err := c.do(ctx, request{method: http.MethodPost, path: "/videos", body: req}, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *Client) UpdateVideo(ctx context.Context, id string, patch models.VideoPatch) (*models.Video, error) {
	var video models.Video
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/videos/" + url.PathEscape(id),
		body:   patch,
	}, &video)
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *Client) DeleteVideo(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/videos/" + url.PathEscape(id)}, nil)
}

func (c *Client) Payments(ctx context.Context) ([]*models.Payment, error) {
	var payments []*models.Payment
	if err := c.do(ctx, request{method: http.MethodGet, path: "/payments"}, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (c *Client) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error) {
	var p models.Payment
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/payments/" + url.PathEscape(id),
		body:   models.PaymentStatusRequest{Status: status},
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) PendingUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/pending-users"}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ApprovePendingUser(ctx context.Context, email string) (*models.ActionResponse, error) {
	var resp models.ActionResponse
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/pending-users/" + url.PathEscape(email) + "/approve",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Withdrawals lists every withdrawal, or one account's when email is set.
func (c *Client) Withdrawals(ctx context.Context, email string) ([]*models.Withdrawal, error) {
	var q url.Values
	if email != "" {
		q = url.Values{"email": {email}}
	}

	var ws []*models.Withdrawal
	if err := c.do(ctx, request{method: http.MethodGet, path: "/withdrawals", query: q}, &ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *Client) ApproveWithdrawal(ctx context.Context, id string) (*models.WithdrawResponse, error) {
	return c.settleWithdrawal(ctx, id, "approve")
}

func (c *Client) RejectWithdrawal(ctx context.Context, id string) (*models.WithdrawResponse, error) {
	return c.settleWithdrawal(ctx, id, "reject")
}

func (c *Client) settleWithdrawal(ctx context.Context, id, action string) (*models.WithdrawResponse, error) {
	var resp models.WithdrawResponse
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/withdrawals/" + url.PathEscape(id) + "/" + action,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Members(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/members"}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) MemberProfile(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/members/profile/" + url.PathEscape(email),
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
