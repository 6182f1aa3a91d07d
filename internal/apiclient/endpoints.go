package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"learn-and-earn/internal/models"
)

func (c *Client) IssueToken(ctx context.Context, email string) (string, error) {
	var resp models.TokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/jwt",
		body:   models.TokenRequest{Email: models.NormalizeEmail(email)},
		public: true,
	}, &resp)
	return resp.Token, err
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	req.Normalize()
	var resp models.RegisterResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/users", body: req, public: true}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteUser removes an account. Registration uses it to roll back a
// half-created signup.
func (c *Client) DeleteUser(ctx context.Context, email string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/users/" + url.PathEscape(email)}, nil)
}

func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, request{method: http.MethodGet, path: "/my-profile"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Team(ctx context.Context) ([]models.TeamMember, error) {
	var resp models.TeamResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/my-team"}, &resp); err != nil {
		return nil, err
	}
	return resp.Team, nil
}

// Role looks up the role for a referral code, or for an email when code is
// empty.
func (c *Client) Role(ctx context.Context, email, referralCode string) (models.Role, error) {
	q := url.Values{}
	if code := models.NormalizeReferralCode(referralCode); code != "" {
		q.Set("referralCode", code)
	} else {
		q.Set("email", models.NormalizeEmail(email))
	}

	var resp models.RoleResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/role", query: q}, &resp); err != nil {
		return models.RoleUser, err
	}
	return models.ParseRole(string(resp.Role)), nil
}

func (c *Client) UpdatePhoto(ctx context.Context, email, photoURL string) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/users/update-photo",
		body:   models.UpdatePhotoRequest{Email: email, PhotoURL: photoURL},
	}, nil)
}

func (c *Client) PlayLottery(ctx context.Context, email string) (*models.PlayFreeResponse, error) {
	var resp models.PlayFreeResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/lottery/play-free",
		body:   models.PlayFreeRequest{Email: email},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Unlock(ctx context.Context, email string) (*models.UnlockResponse, error) {
	var resp models.UnlockResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/games/unlock",
		body:   models.UnlockRequest{Email: email},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) PlayDino(ctx context.Context, email string, score int) (*models.DinoPlayResponse, error) {
	var resp models.DinoPlayResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/dinogame/play",
		body:   models.DinoPlayRequest{Email: email, Score: score},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Verification(ctx context.Context) (*models.VerificationData, error) {
	var resp models.VerificationData
	if err := c.do(ctx, request{method: http.MethodGet, path: "/games/verification"}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Withdraw(ctx context.Context, amount int64) (*models.WithdrawResponse, error) {
	var resp models.WithdrawResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/withdraw",
		body:   models.WithdrawRequest{Amount: amount},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SubmitPayment(ctx context.Context, req models.PaymentRequest) (*models.Payment, error) {
	var p models.Payment
	if err := c.do(ctx, request{method: http.MethodPost, path: "/payments", body: req}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Transactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/transactions", query: q}, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) Courses(ctx context.Context) ([]*models.Course, error) {
	var courses []*models.Course
	if err := c.do(ctx, request{method: http.MethodGet, path: "/courses"}, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *Client) Videos(ctx context.Context, courseKey string) ([]*models.Video, error) {
	var videos []*models.Video
	q := url.Values{"courseKey": {courseKey}}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/videos", query: q}, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// WebSocketURL returns the balance feed address with the token in the query
// string, since browsers and most dialers cannot set headers on upgrade.
func (c *Client) WebSocketURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if c.tokens != nil {
		if token := c.tokens.BearerToken(); token != "" {
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}
