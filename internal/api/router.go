// Package api wires the HTTP surface: routes, middleware and the error
// boundary that maps domain errors to status codes.
package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/bookbound/library/docs"
	"github.com/bookbound/library/internal/api/handler"
	"github.com/bookbound/library/internal/api/middleware"
	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Auth       ports.AuthService
	Users      ports.UserService
	Cards      ports.CardService
	Loans      ports.LoanService
	Books      ports.BookService
	Authors    ports.AuthorService
	Enrichment ports.EnrichmentService
	Tokens     ports.TokenVerifier
	// Health lists the dependencies checked by /health/ready.
	Health map[string]handler.PingFunc
	Log    zerolog.Logger
	// Registerer receives the HTTP metrics. Nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "library",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
	}))

	// --- Probes, metrics and docs (no auth required) ---
	health := handler.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Authenticated API ---
	v1 := e.Group("/v1", middleware.Auth(d.Tokens))
	admin := middleware.RBAC(domain.RoleAdmin)

	users := handler.NewUserHandler(d.Users, d.Cards)
	v1.GET("/users/me", users.Me)
	v1.PATCH("/users/me", users.UpdateMe)
	v1.GET("/users/me/card", users.MyCard)
	v1.GET("/users", users.List, admin)
	v1.GET("/users/:id", users.Get, admin)
	v1.PATCH("/users/:id", users.Update, admin)
	v1.DELETE("/users/:id", users.Delete, admin)

	books := handler.NewBookHandler(d.Books, d.Enrichment)
	v1.GET("/books", books.Search)
	v1.GET("/books/:id", books.Get)
	v1.POST("/books", books.Create, admin)
	v1.POST("/books/import", books.Import, admin)
	v1.PATCH("/books/:id", books.Update, admin)
	v1.DELETE("/books/:id", books.Delete, admin)
	v1.POST("/books/:id/enrich", books.Enrich, admin)
	v1.PUT("/books/:id/authors/:authorId", books.AttachAuthor, admin)
	v1.DELETE("/books/:id/authors/:authorId", books.DetachAuthor, admin)

	catalog := handler.NewCatalogHandler(d.Enrichment)
	v1.GET("/catalog/search", catalog.Search)

	authors := handler.NewAuthorHandler(d.Authors)
	v1.GET("/authors", authors.List)
	v1.GET("/authors/:id", authors.Get)
	v1.POST("/authors", authors.Create, admin)
	v1.PATCH("/authors/:id", authors.Update, admin)
	v1.DELETE("/authors/:id", authors.Delete, admin)

	loans := handler.NewLoanHandler(d.Loans)
	v1.POST("/loans", loans.Create)
	v1.GET("/loans", loans.List)
	v1.GET("/loans/ongoing", loans.Ongoing)
	v1.GET("/loans/:id", loans.Get)
	v1.POST("/loans/:id/return", loans.Return)

	cards := handler.NewCardHandler(d.Cards)
	cardGroup := v1.Group("/cards", admin)
	cardGroup.GET("", cards.List)
	cardGroup.POST("", cards.Create)
	cardGroup.POST("/seed", cards.Seed)
	cardGroup.GET("/:id", cards.Get)
	cardGroup.POST("/:id/assign", cards.Assign)
	cardGroup.POST("/:id/archive", cards.Archive)

	return e
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			switch {
			case v.Status >= http.StatusInternalServerError:
				event = log.Error().Err(v.Error)
			case v.Status >= http.StatusBadRequest:
				event = log.Warn()
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
