package router

import (
	"github.com/labstack/echo/v4"

	"schoolmsg/internal/adapter/api/handler"
	"schoolmsg/internal/adapter/api/middleware"
	"schoolmsg/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, threadHandler *handler.ThreadHandler, authMiddleware *middleware.AuthMiddleware, limiter ratelimit.Limiter) {
	e.GET("/health", handler.CheckHealth)

	SetupThreadRouter(e, threadHandler, authMiddleware, limiter)
}
