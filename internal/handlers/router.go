package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"learn-and-earn/internal/config"
	"learn-and-earn/internal/middleware"
	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

type RouterDeps struct {
	Config   *config.Config
	Store    *services.RedisService
	JWT      *services.JWTService
	Games    *services.GameEngine
	Accounts *services.AccountService
	WS       *WebSocketHandler
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// PublicLimiter throttles /jwt and /users per IP. Defaults to 1 rps, burst 10.
	PublicLimiter *middleware.IPRateLimiter
	Logger        *slog.Logger
}

// NewRouter mounts every route of the public API.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if !d.Config.Production() {
		router.Use(gin.Logger())
	}
	router.Use(middleware.CORS(d.Config.CORSOrigins))

	authHandler := NewAuthHandler(d.Accounts, d.Logger)
	userHandler := NewUserHandler(d.Accounts, d.Logger)
	gameHandler := NewGameHandler(d.Games, d.Logger)
	catalogHandler := NewCatalogHandler(d.Store, d.Logger)
	adminHandler := NewAdminHandler(d.Accounts, d.Logger)

	router.GET("/health", func(c *gin.Context) {
		if err := d.Store.Ping(c.Request.Context()); err != nil {
			respondMessage(c, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	limiter := d.PublicLimiter
	if limiter == nil {
		limiter = middleware.NewIPRateLimiter(rate.Limit(1), 10)
	}

	public := router.Group("/")
	public.Use(limiter.Middleware())
	{
		public.POST("/jwt", authHandler.IssueToken)
		public.POST("/users", authHandler.Register)
	}

	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware(d.JWT))
	protected.Use(middleware.RateLimitMiddleware(d.Store))
	{
		protected.DELETE("/users/:email", authHandler.DeleteUser)
		protected.GET("/users/role", userHandler.GetRole)
		protected.PATCH("/users/update-photo", userHandler.UpdatePhoto)
		protected.GET("/my-profile", userHandler.GetProfile)
		protected.GET("/my-team", userHandler.GetTeam)
		protected.GET("/transactions", userHandler.GetTransactions)
		protected.POST("/withdraw", userHandler.Withdraw)
		protected.POST("/payments", userHandler.SubmitPayment)

		protected.POST("/lottery/play-free", gameHandler.PlayLottery)
		protected.POST("/games/unlock", gameHandler.Unlock)
		protected.POST("/dinogame/play", gameHandler.PlayDino)
		protected.GET("/games/verification", gameHandler.GetVerificationData)

		protected.GET("/courses", catalogHandler.ListCourses)
		protected.GET("/videos", catalogHandler.ListVideos)

		if d.WS != nil {
			protected.GET("/ws", d.WS.HandleWebSocket)
		}
	}

	admin := protected.Group("/")
	admin.Use(middleware.RequireRole(d.Accounts, models.RoleAdmin))
	{
		admin.POST("/courses", catalogHandler.CreateCourse)
		admin.PATCH("/courses/:id", catalogHandler.RenameCourse)
		admin.DELETE("/courses/:id", catalogHandler.DeleteCourse)
		admin.POST("/videos", catalogHandler.CreateVideo)
		admin.PATCH("/videos/:id", catalogHandler.UpdateVideo)
		admin.DELETE("/videos/:id", catalogHandler.DeleteVideo)

		admin.GET("/payments", adminHandler.ListPayments)
		admin.PATCH("/payments/:id", adminHandler.SetPaymentStatus)
		admin.GET("/pending-users", adminHandler.ListPendingUsers)
		admin.PATCH("/pending-users/:email/approve", adminHandler.ApprovePendingUser)
		admin.GET("/withdrawals", adminHandler.ListWithdrawals)
		admin.PATCH("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
		admin.PATCH("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
		admin.GET("/members", adminHandler.ListMembers)
		admin.GET("/members/profile/:email", adminHandler.GetMemberProfile)
	}

	return router
}
