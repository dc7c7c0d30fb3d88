// Package webapi is the local operator surface: a small unauthenticated
// HTTP JSON API the screen frontend talks to. Rendering stays on the other
// side of it.
package webapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pajakoo/shoppApp/internal/app"
	"github.com/pajakoo/shoppApp/internal/screen"
)

// Server hosts the operator API over one mounted screen.
type Server struct {
	e      *echo.Echo
	actx   app.AppContext
	screen *screen.Screen
}

// NewServer builds the echo server and registers all routes.
func NewServer(actx app.AppContext, scr *screen.Screen) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{e: e, actx: actx, screen: scr}

	e.GET("/api/devices", s.listDevices)
	e.POST("/api/devices/select", s.selectDevice)
	e.POST("/api/scan", s.manualScan)
	e.GET("/api/form", s.getForm)
	e.POST("/api/form", s.editForm)
	e.GET("/api/products", s.listProducts)
	e.POST("/api/products", s.submitProduct)
	e.DELETE("/api/products/:id", s.deleteProduct)
	e.GET("/api/products/export", s.exportProducts)
	e.GET("/api/stores", s.listStores)
	e.GET("/api/stores/suggest", s.suggestStores)
	e.GET("/api/status", s.status)
	e.GET("/api/metrics", s.queryMetrics)
	return s
}

// Start serves until Shutdown; it blocks.
func (s *Server) Start(listen string) error {
	zap.S().Infof("operator api listening on %s", listen)
	return s.e.Start(listen)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"code": 0,
		"data": data,
	})
}

func fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    code,
		"message": msg,
		"detail":  detail,
	})
}
