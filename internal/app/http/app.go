package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"delivery_portal/internal/config"
	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/middleware"
	httprouters "delivery_portal/internal/transport/http"

	"github.com/arl/statsviz"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Server struct {
	m           *http.ServeMux
	log         *slog.Logger
	e           *echo.Echo
	routers     *httprouters.Routers
	host        string
	port        string
	adminSecret string
}

func New(log *slog.Logger, cfg config.HTTPConfig, adminSecret string, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	validate := validator.New()
	e.Validator = &CustomValidator{validator: validate}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.SecureCookies
	e.Use(session.Middleware(store))

	e.Use(echomw.CORS())
	e.Use(echomw.Recover())
	e.Use(middleware.PrometheusMetrics)

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request",
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			)

			return nil
		},
	}))

	mux := http.NewServeMux()
	err := statsviz.Register(mux)
	if err != nil {
		log.Info("Statsviz start with error", sl.Err(err))
	}

	return &Server{
		m:           mux,
		log:         log,
		e:           e,
		routers:     routers,
		host:        cfg.Host,
		port:        cfg.Port,
		adminSecret: adminSecret,
	}
}

// Handler echo-обработчик со всеми маршрутами, для httptest
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"), slog.String("addr", net.JoinHostPort(s.host, s.port)))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(net.JoinHostPort(s.host, s.port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping http server", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) BuildRouters() {
	s.e.GET("/health", s.routers.Health)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	debug := s.e.Group("/debug")
	{
		debug.GET("/statsviz/", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}

	swagger := s.e.Group("/swag")
	{
		swagger.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := s.e.Group("/api/v1")

	admin := api.Group("/admin", middleware.AdminAuth(s.adminSecret))
	{
		admin.POST("/galleries", s.routers.CreateGallery)
		admin.GET("/galleries", s.routers.ListGalleries)
		admin.GET("/galleries/:id", s.routers.GetGallery)
		admin.PUT("/galleries/:id/settings", s.routers.UpdateGallery)
		admin.POST("/galleries/:id/media", s.routers.AddGalleryMedia)
		admin.DELETE("/galleries/:id", s.routers.DeleteGallery)

		admin.POST("/projects", s.routers.CreateProject)
		admin.GET("/projects", s.routers.ListProjects)
		admin.GET("/projects/:id", s.routers.GetProject)
		admin.PUT("/projects/:id/settings", s.routers.UpdateProjectSettings)
		admin.PUT("/projects/:id/proposal", s.routers.UpdateProposal)
		admin.POST("/projects/:id/media", s.routers.AddProjectMedia)
		admin.PUT("/projects/:id/pricing/items", s.routers.UpsertLineItem)
		admin.DELETE("/projects/:id/pricing/items/:item_id", s.routers.RemoveLineItem)
		admin.PUT("/projects/:id/sections/order", s.routers.ReorderSections)
		admin.POST("/projects/:id/status", s.routers.ChangeStatus)
		admin.DELETE("/projects/:id", s.routers.DeleteProject)
	}

	portal := api.Group("/portal")
	{
		portal.POST("/:id/auth", s.routers.Authenticate)
		portal.POST("/:id/logout", s.routers.Logout)
		portal.GET("/:id", s.routers.View)
		portal.GET("/:id/media/:media_id/download", s.routers.Download)
		portal.POST("/:id/media/:media_id/favorite", s.routers.ToggleFavorite)
		portal.POST("/:id/media/:media_id/like", s.routers.LikeMedia)
		portal.POST("/:id/media/:media_id/comments", s.routers.AddComment)
		portal.POST("/:id/viewed", s.routers.MarkViewed)
		portal.POST("/:id/approve", s.routers.Approve)
		portal.POST("/:id/reject", s.routers.Reject)
	}
}
