package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"workspace-client/pkg/config"
	"workspace-client/pkg/database"
	"workspace-client/pkg/handlers"
	"workspace-client/pkg/logger"
	customMiddleware "workspace-client/pkg/middleware"
	"workspace-client/pkg/models"
	"workspace-client/pkg/utils"
)

// maxBodyBytes bounds every request body
const maxBodyBytes = 1 << 20

var (
	routerOnce   sync.Once
	cachedRouter http.Handler
	routerErr    error
)

// Handler 是Vercel函数的入口点
// The router and its database are built once per process and reused across invocations.
func Handler(w http.ResponseWriter, r *http.Request) {
	routerOnce.Do(func() {
		cfg, err := config.GetCached()
		if err != nil {
			routerErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			routerErr = err
			return
		}
		log, err := logger.New(logger.Conf{Level: cfg.LogLevel, JSON: cfg.IsProduction()})
		if err != nil {
			routerErr = err
			return
		}
		db := database.GetDatabase(database.DatabaseConfig{PostgresDSN: cfg.PostgresDSN, Debug: cfg.Debug}, log)
		cachedRouter = NewRouter(cfg, db, log)
	})
	if routerErr != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+routerErr.Error())
		return
	}
	cachedRouter.ServeHTTP(w, r)
}

// NewRouter builds the dev gateway: every route the workspace client calls, under /api.
func NewRouter(cfg *config.Config, db database.DatabaseInterface, log *zap.SugaredLogger) http.Handler {
	router := chi.NewRouter()
	setupMiddleware(router, cfg, log)
	setupRoutes(router, cfg, db, log)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config, log *zap.SugaredLogger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(customMiddleware.Normalize)
	router.Use(customMiddleware.Logger(log))
	router.Use(customMiddleware.Recovery(log, cfg.IsDevelopment()))
	router.Use(customMiddleware.CORS(cfg))
	router.Use(middleware.Timeout(25 * time.Second))
	router.Use(middleware.Compress(5))
	router.Use(customMiddleware.MaxBodySize(maxBodyBytes))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface, log *zap.SugaredLogger) {
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	authHandler := handlers.NewAuthHandler(cfg, db, jwtService, log)
	orgsHandler := handlers.NewOrgsHandler(cfg, db, log)
	invitesHandler := handlers.NewInvitesHandler(db, log)

	router.Get("/", authHandler.HealthCheck)

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.ContentTypeJSON)

		// 公开路由（不需要认证）
		r.Get("/health", authHandler.HealthCheck)
		r.Post("/dev/login", authHandler.DevLogin)
		r.Get("/invites/preview", invitesHandler.Preview)

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(jwtService, log))

			r.Get("/organizations/memberships/{username}", orgsHandler.ListMemberships)

			r.Route("/orgs", func(r chi.Router) {
				r.Post("/", orgsHandler.CreateOrganization)
				r.Get("/discover", orgsHandler.Discover)
				r.Get("/slug/{slug}", orgsHandler.GetBySlug)
				r.Post("/{orgId}/join", orgsHandler.Join)
				r.Get("/{orgId}/members", orgsHandler.SearchMembers)
				r.Post("/{orgId}/invites", invitesHandler.CreateInvite(models.ScopeOrg))
				r.Get("/{orgId}/invites", invitesHandler.ListInvites(models.ScopeOrg))
			})

			r.Route("/layers", func(r chi.Router) {
				r.Post("/", orgsHandler.CreateLayer)
				r.Post("/{layerId}/invites", invitesHandler.CreateInvite(models.ScopeLayer))
				r.Get("/{layerId}/invites", invitesHandler.ListInvites(models.ScopeLayer))
			})

			r.Route("/invites", func(r chi.Router) {
				r.Post("/accept", invitesHandler.Accept)
				r.Post("/{id}/resend", invitesHandler.Resend)
				r.Post("/{id}/revoke", invitesHandler.Revoke)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
