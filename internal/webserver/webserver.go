// Package webserver bootstraps the echo server and exposes the route
// registry used by the API packages: public routes and JWT-protected admin
// routes registered under /api.
package webserver

import (
	"fmt"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/svpecas/catalogd/internal/app"
	"go.uber.org/zap"
)

type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
}

var server *WebServer

// Init builds the server: recovery, request logging through zap, the app
// context injected into every request, and a JWT guard on the /api group.
func Init(appCtx app.AppContext) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI: true, LogStatus: true, LogMethod: true, LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	api := e.Group("/api")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(appCtx.Config().Web.JwtSecret),
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/auth/login"
		},
	}))

	server = &WebServer{root: e, api: api, appCtx: appCtx}
	return server
}

// AppContextKey is the echo context key holding the app.AppContext.
const AppContextKey = "catalogd_app"

// GetApp returns the application context bound to the request.
func GetApp(c echo.Context) app.AppContext {
	return c.Get(AppContextKey).(app.AppContext)
}

// Listen starts serving on the configured address.
func Listen() error {
	cfg := server.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.L().Info("webserver listening", zap.String("addr", addr))
	return server.root.Start(addr)
}

// Echo exposes the underlying echo instance (used in tests).
func Echo() *echo.Echo { return server.root }

// ApiGET registers a JWT-protected route under /api.
func ApiGET(path string, h echo.HandlerFunc) { server.api.GET(path, h) }

func ApiPOST(path string, h echo.HandlerFunc) { server.api.POST(path, h) }

func ApiPUT(path string, h echo.HandlerFunc) { server.api.PUT(path, h) }

func ApiDELETE(path string, h echo.HandlerFunc) { server.api.DELETE(path, h) }

// PubGET registers an unauthenticated route.
func PubGET(path string, h echo.HandlerFunc) { server.root.GET(path, h) }

func PubPOST(path string, h echo.HandlerFunc) { server.root.POST(path, h) }
