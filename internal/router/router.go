// Package router assembles the gin engine: middlewares, HTML pages and the
// JSON API.
package router

import (
	"context"
	"net/http"
	"time"

	"hasker/backend/internal/auth"
	"hasker/backend/internal/config"
	"hasker/backend/internal/database"
	"hasker/backend/internal/handler"
	"hasker/backend/internal/hub"
	"hasker/backend/internal/logging"
	"hasker/backend/internal/media"
	"hasker/backend/internal/metrics"
	"hasker/backend/internal/middleware"
	"hasker/backend/internal/service"
	"hasker/backend/internal/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

const sessionName = "hasker_session"

// Deps are the long-lived objects the routes are built from.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *logrus.Logger
	Notifier service.Notifier
	// Done stops background cleanup when closed. May be nil.
	Done <-chan struct{}
}

// New builds the engine serving pages under / and the API under /api.
func New(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := service.RegisterValidators(v); err != nil {
			return nil, err
		}
	}

	store := media.NewStore(cfg.MediaRoot, cfg.MediaURL, cfg.MaxAvatarBytes)
	users := service.NewUserService(deps.DB, deps.Log)
	events := hub.New(deps.Log)
	questions := service.NewQuestionService(deps.DB, deps.Notifier, deps.Log).WithPublisher(events)
	tags := service.NewTagService(deps.DB)

	renderer, err := web.LoadTemplates(store)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	// Tag names may contain "/", which links carry as %2F.
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.HTMLRender = renderer
	r.Use(gin.Recovery())
	r.Use(logging.Middleware(deps.Log))
	r.Use(metrics.Middleware())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((14 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, sessionStore))
	r.Use(auth.LoadUser(users))

	r.StaticFS("/static", http.FS(web.Static()))
	r.Static(cfg.MediaURL, cfg.MediaRoot)

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		stats, err := database.Health(ctx, deps.DB)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, stats)
			return
		}
		c.JSON(http.StatusOK, stats)
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, deps.Log)
	if deps.Done != nil {
		limiter.StartCleanup(time.Minute, deps.Done)
	}

	pages := web.NewPages(questions, users, store, deps.Log)
	registerPages(r, pages, limiter)
	r.NoRoute(pages.NotFound)

	api := r.Group("/api")
	api.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	api.Use(auth.OptionalAuthMiddleware(cfg.JWTSecret, users))
	registerAPI(api, apiHandlers{
		users:     handler.NewUserHandler(users, store, cfg.JWTSecret, cfg.JWTTTL),
		questions: handler.NewQuestionHandler(questions, store),
		tags:      handler.NewTagHandler(tags),
		events:    handler.NewEventHandler(events, questions),
	}, users, limiter)

	return r, nil
}

func registerPages(r *gin.Engine, p *web.Pages, limiter *middleware.RateLimiter) {
	r.GET("/", p.Index)
	r.GET("/trending", p.Trending)
	r.GET("/search", p.Search)
	r.GET("/tag/:name", p.Tag)
	r.GET("/users/:id", p.Profile)
	r.GET("/questions/:id", p.Question)

	r.GET("/login", p.LoginForm)
	r.POST("/login", limiter.Handler(), p.Login)
	r.POST("/logout", p.Logout)
	r.GET("/signup", p.SignupForm)
	r.POST("/signup", limiter.Handler(), p.Signup)

	member := r.Group("/", auth.LoginRequired())
	{
		member.GET("/ask", p.AskForm)
		member.POST("/ask", p.Ask)
		member.GET("/settings", p.SettingsForm)
		member.POST("/settings", p.Settings)

		member.POST("/questions/:id", p.Answer)
		member.POST("/questions/:id/upvote", p.VoteQuestionUp)
		member.POST("/questions/:id/downvote", p.VoteQuestionDown)
		member.POST("/questions/:id/answers/:aid/upvote", p.VoteAnswerUp)
		member.POST("/questions/:id/answers/:aid/downvote", p.VoteAnswerDown)
		member.POST("/questions/:id/answers/:aid/accept", p.Accept)
	}
}

type apiHandlers struct {
	users     *handler.UserHandler
	questions *handler.QuestionHandler
	tags      *handler.TagHandler
	events    *handler.EventHandler
}

func registerAPI(api *gin.RouterGroup, h apiHandlers, users *service.UserService, limiter *middleware.RateLimiter) {
	api.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Auth routes
	authRoutes := api.Group("/auth")
	authRoutes.Use(limiter.Handler())
	{
		authRoutes.POST("/register", h.users.RegisterUser)
		authRoutes.POST("/login", h.users.LoginUser)
	}

	protected := api.Group("")
	protected.Use(auth.AuthMiddleware())
	{
		userRoutes := protected.Group("/users")
		{
			userRoutes.GET("/me", h.users.GetMe) // Must be before /:id
			userRoutes.GET("/:id", h.users.GetUserByID)
		}

		questionRoutes := protected.Group("/questions")
		{
			questionRoutes.GET("", h.questions.ListQuestions)
			questionRoutes.POST("", h.questions.CreateQuestion)
			questionRoutes.GET("/trending", h.questions.TrendingQuestions)
			questionRoutes.GET("/top_trending", h.questions.TopTrending)
			questionRoutes.GET("/search", h.questions.SearchQuestions)
			questionRoutes.GET("/:id", h.questions.GetQuestion)
			questionRoutes.GET("/:id/events", h.events.StreamQuestionEvents)
			questionRoutes.GET("/:id/answers", h.questions.ListAnswers)
			questionRoutes.POST("/:id/answers", h.questions.CreateAnswer)
			questionRoutes.POST("/:id/answers/:answer_id/accept", h.questions.AcceptAnswer)
			questionRoutes.POST("/:id/vote", h.questions.VoteQuestion)
		}
		protected.POST("/answers/:id/vote", h.questions.VoteAnswer)
		protected.GET("/tags", h.tags.GetTags)

		// Admin routes (protected by auth and admin check)
		adminRoutes := protected.Group("/admin")
		adminRoutes.Use(auth.AdminMiddleware(users))
		{
			adminRoutes.POST("/tags", h.tags.CreateTag)
			adminRoutes.PUT("/tags/:id", h.tags.UpdateTag)
			adminRoutes.DELETE("/tags/:id", h.tags.DeleteTag)
		}
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
