package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"learn-and-earn/internal/config"
	"learn-and-earn/internal/handlers"
	"learn-and-earn/internal/middleware"
	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *services.RedisService
	ws     *handlers.WebSocketHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		Env:         "test",
		JWTSecret:   "handler-secret",
		JWTIssuer:   "learn-and-earn-test",
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"*"},
		AdminEmails: []string{"boss@example.com"},
		Games:       config.DefaultGameRules(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := services.NewRedisServiceWithClient(client)
	jwtService := services.NewJWTService(cfg)
	ws := handlers.NewWebSocketHandler(store, nil, logger)
	t.Cleanup(ws.Close)
	games := services.NewGameEngine(store, cfg.Games, ws, nil, logger)
	accounts := services.NewAccountService(store, games, jwtService, cfg, ws, nil, logger)

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:        cfg,
		Store:         store,
		JWT:           jwtService,
		Games:         games,
		Accounts:      accounts,
		WS:            ws,
		PublicLimiter: middleware.NewIPRateLimiter(rate.Inf, 1),
		Logger:        logger,
	})
	return &testServer{router: router, store: store, ws: ws}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email, name, referredBy string) models.RegisterResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/users", "", models.RegisterRequest{Email: email, Name: name, ReferredBy: referredBy})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[models.ActionResponse](t, w).Message
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	reg := s.register(t, "alice@example.com", "Alice", "")
	assert.NotEmpty(t, reg.Token)

	w := s.do(t, http.MethodPost, "/jwt", "", models.TokenRequest{Email: "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[models.TokenResponse](t, w).Token)

	w = s.do(t, http.MethodPost, "/jwt", "", models.TokenRequest{Email: "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/users", "", models.RegisterRequest{Email: "alice@example.com", Name: "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Already exists", message(t, w))

	w = s.do(t, http.MethodPost, "/users", "", map[string]string{"email": "not-an-email", "name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileRequiresToken(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, "alice@example.com", "Alice", "")

	w := s.do(t, http.MethodGet, "/my-profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/my-profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/my-profile", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[models.Profile](t, w)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, models.RoleUser, profile.Role)
	require.NotNil(t, profile.RemainingToday)
	assert.Equal(t, 3, *profile.RemainingToday)
	assert.Contains(t, profile.Games, models.GameDino)
}

func TestLotteryFlow(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, "alice@example.com", "Alice", "")
	ctx := context.Background()

	w := s.do(t, http.MethodPost, "/lottery/play-free", reg.Token, models.PlayFreeRequest{Email: "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, message(t, w), "locked")

	w = s.do(t, http.MethodPost, "/games/unlock", reg.Token, models.UnlockRequest{Email: "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err := s.store.AddTokens(ctx, "alice@example.com", 5)
	require.NoError(t, err)

	w = s.do(t, http.MethodPost, "/games/unlock", reg.Token, models.UnlockRequest{Email: "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	unlock := decode[models.UnlockResponse](t, w)
	assert.Equal(t, int64(1), *unlock.Tokens)
	require.NotNil(t, unlock.UnlockDate)

	for want := 2; want >= 0; want-- {
		w = s.do(t, http.MethodPost, "/lottery/play-free", reg.Token, models.PlayFreeRequest{Email: "alice@example.com"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[models.PlayFreeResponse](t, w)
		assert.Len(t, resp.Slots, models.ReelCount)
		left, ok := resp.Remaining()
		require.True(t, ok)
		assert.Equal(t, want, left)
	}

	w = s.do(t, http.MethodPost, "/lottery/play-free", reg.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, message(t, w), "No free plays left")

	w = s.do(t, http.MethodGet, "/games/verification", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decode[models.VerificationData](t, w).CurrentNonce)
}

func TestForeignEmailIsForbidden(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, "alice@example.com", "Alice", "")
	s.register(t, "bob@example.com", "Bob", "")

	w := s.do(t, http.MethodPost, "/lottery/play-free", reg.Token, models.PlayFreeRequest{Email: "bob@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/users/bob@example.com", reg.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/users/alice@example.com", reg.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleLookupEndpoint(t *testing.T) {
	s := newTestServer(t)
	boss := s.register(t, "boss@example.com", "Boss", "")
	alice := s.register(t, "alice@example.com", "Alice", "")

	w := s.do(t, http.MethodGet, "/users/role?email=boss@example.com", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdmin, decode[models.RoleResponse](t, w).Role)

	w = s.do(t, http.MethodGet, "/users/role?referralCode="+strings.ToLower(alice.User.ReferralCode), boss.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleUser, decode[models.RoleResponse](t, w).Role)

	w = s.do(t, http.MethodGet, "/users/role", boss.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminCatalog(t *testing.T) {
	s := newTestServer(t)
	boss := s.register(t, "boss@example.com", "Boss", "")
	alice := s.register(t, "alice@example.com", "Alice", "")

	w := s.do(t, http.MethodPost, "/courses", alice.Token, models.CreateCourseRequest{Key: "go", Name: "Go"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/courses", boss.Token, models.CreateCourseRequest{Key: " Go ", Name: "Go"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	course := decode[models.Course](t, w)
	assert.Equal(t, "go", course.Key)

	w = s.do(t, http.MethodPost, "/videos", boss.Token, models.CreateVideoRequest{CourseKey: "go", Title: "Intro", YouTubeID: "abc"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	video := decode[models.Video](t, w)
	assert.Equal(t, 1, video.Order)

	w = s.do(t, http.MethodPatch, "/videos/"+video.ID, boss.Token, models.VideoPatch{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	title := "Welcome"
	w = s.do(t, http.MethodPatch, "/videos/"+video.ID, boss.Token, models.VideoPatch{Title: &title})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/videos?courseKey=go", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	videos := decode[[]models.Video](t, w)
	require.Len(t, videos, 1)
	assert.Equal(t, "Welcome", videos[0].Title)

	w = s.do(t, http.MethodDelete, "/courses/"+course.ID, boss.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/courses", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Course](t, w))

	w = s.do(t, http.MethodDelete, "/videos/"+video.ID, boss.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMembershipAndWithdrawal(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	boss := s.register(t, "boss@example.com", "Boss", "")
	alice := s.register(t, "alice@example.com", "Alice", "")
	bob := s.register(t, "bob@example.com", "Bob", alice.User.ReferralCode)

	w := s.do(t, http.MethodPost, "/payments", bob.Token, models.PaymentRequest{
		Name: "Bob", Email: "bob@example.com", Phone: "017", Screenshot: "https://img.example.com/p.png",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := decode[models.Payment](t, w)

	w = s.do(t, http.MethodPatch, "/payments/"+payment.ID, boss.Token, models.PaymentStatusRequest{Status: models.PaymentApproved})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/pending-users/bob@example.com/approve", boss.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/payments", bob.Token, models.PaymentRequest{
		Name: "Bob", Email: "bob@example.com", Phone: "017", Screenshot: "https://img.example.com/p2.png",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "You are already a member.", message(t, w))

	w = s.do(t, http.MethodGet, "/members", boss.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.User](t, w), 1)

	w = s.do(t, http.MethodGet, "/my-team", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	team := decode[models.TeamResponse](t, w)
	require.Len(t, team.Team, 1)
	assert.Equal(t, models.RoleMember, team.Team[0].Role)

	require.NoError(t, s.store.UpdateUserFields(ctx, "alice@example.com", "balance", 150))

	w = s.do(t, http.MethodPost, "/withdraw", alice.Token, models.WithdrawRequest{Amount: 20})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "minimum withdrawal is 100৳", message(t, w))

	w = s.do(t, http.MethodPost, "/withdraw", alice.Token, models.WithdrawRequest{Amount: 120})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	withdrawal := decode[models.WithdrawResponse](t, w).Withdrawal
	require.NotNil(t, withdrawal)

	w = s.do(t, http.MethodPatch, "/withdrawals/"+withdrawal.ID+"/approve", boss.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/withdrawals/"+withdrawal.ID+"/reject", boss.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/members/profile/alice@example.com", boss.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[models.Profile](t, w)
	assert.Equal(t, int64(30), profile.Balance)
	assert.Equal(t, int64(0), profile.LockedBalance)
	assert.Equal(t, int64(1), profile.Tokens, "referral bonus")
}

func TestWebSocketBalancePush(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, "alice@example.com", "Alice", "")
	require.NoError(t, s.store.UpdateUserFields(context.Background(), "alice@example.com",
		"unlocked_until", time.Now().Add(time.Hour).UnixMilli()))

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + reg.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first handlers.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, handlers.MessageBalanceUpdate, first.Type)

	// the hub registers the client before the first push, so this play is observed
	w := s.do(t, http.MethodPost, "/dinogame/play", reg.Token, models.DinoPlayRequest{Score: 500})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var update struct {
		Type string               `json:"type"`
		Data models.BalanceUpdate `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, handlers.MessageBalanceUpdate, update.Type)
	assert.Equal(t, int64(5), update.Data.Balance)
}
