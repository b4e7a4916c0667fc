// Package httpserver exposes the application services over a JSON REST API.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mbastos/filegate/internal/seclog"
	"github.com/mbastos/filegate/internal/service"
)

// Config carries HTTP server settings.
type Config struct {
	Addr          string
	AllowedOrigin string
	// MaxUploadBytes bounds multipart upload size.
	MaxUploadBytes int64
}

// Server wires the services into a gin engine.
type Server struct {
	cfg    Config
	auth   service.AuthService
	files  service.FileService
	groups service.GroupService
	cats   service.CategoryService
	users  service.UserService
	stats  service.StatsService
	sec    *seclog.Logger
	log    *zap.Logger

	srv *http.Server
}

// New constructs a Server; Run starts it.
func New(
	cfg Config,
	auth service.AuthService,
	files service.FileService,
	groups service.GroupService,
	cats service.CategoryService,
	users service.UserService,
	stats service.StatsService,
	sec *seclog.Logger,
	log *zap.Logger,
) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	return &Server{
		cfg:    cfg,
		auth:   auth,
		files:  files,
		groups: groups,
		cats:   cats,
		users:  users,
		stats:  stats,
		sec:    sec,
		log:    log,
	}
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Recover(s.log), Logging(s.log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.cfg.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	api := r.Group("/api")

	pub := api.Group("/auth")
	pub.POST("/login", s.login)
	pub.POST("/register", s.register)
	pub.POST("/forgot-password", s.forgotPassword)
	pub.POST("/reset-password", s.resetPassword)

	authd := api.Group("", Auth(s.auth, s.sec))
	authd.GET("/auth/validate-role", s.validateRole)
	authd.POST("/auth/logout", s.logout)

	authd.GET("/files", s.listFiles)
	authd.POST("/files", s.uploadFile)
	authd.PUT("/files/:id", s.updateFile)
	authd.DELETE("/files/:id", s.deleteFile)
	authd.GET("/files/:id/download", s.downloadFile)
	authd.GET("/files/:id/permissions", s.filePermissions)

	authd.GET("/groups", s.listGroups)
	authd.POST("/groups", s.createGroup)
	authd.PUT("/groups/:id", s.updateGroup)
	authd.DELETE("/groups/:id", s.deleteGroup)
	authd.GET("/groups/:id/members", s.groupMembers)
	authd.POST("/groups/:id/members", s.updateGroupMembers)

	authd.GET("/categories", s.listCategories)
	authd.POST("/categories", s.createCategory)
	authd.DELETE("/categories/:id", s.deleteCategory)
	authd.GET("/subscriptions", s.listSubscriptions)
	authd.POST("/categories/:id/subscribe", s.subscribe)
	authd.DELETE("/categories/:id/subscribe", s.unsubscribe)

	authd.GET("/users", s.listUsers)
	authd.PUT("/users/:id", s.updateUser)
	authd.GET("/profile", s.profile)
	authd.PUT("/profile", s.updateProfile)

	authd.GET("/stats", s.statsHandler)

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutCtx)
}
