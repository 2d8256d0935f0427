package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"schoolmsg/internal/adapter/api/handler"
	"schoolmsg/internal/adapter/api/middleware"
	"schoolmsg/internal/infrastructure/ratelimit"
)

// SetupThreadRouter registers the REST thread routes and the
// /manageMessages?operation=... entry point.
func SetupThreadRouter(e *echo.Echo, threadHandler *handler.ThreadHandler, authMiddleware *middleware.AuthMiddleware, limiter ratelimit.Limiter) {
	threadGroup := e.Group("/v1/threads")
	threadGroup.Use(authMiddleware.Authenticate) // every thread route needs a verified caller

	threadGroup.POST("", threadHandler.GetOrCreateThread, middleware.RateLimit(limiter, ratelimit.ActionCreateThread))
	threadGroup.GET("/teacher", threadHandler.ListThreadsForTeacher) // GET /v1/threads/teacher?academicYear=
	threadGroup.GET("/parent", threadHandler.ListThreadsForParent)   // GET /v1/threads/parent?academicYear=
	threadGroup.GET("/:id", threadHandler.GetThread)
	threadGroup.GET("/:id/messages", threadHandler.ListMessages)
	threadGroup.POST("/:id/messages", threadHandler.SendMessage, middleware.RateLimit(limiter, ratelimit.ActionSendMessage))
	threadGroup.PUT("/:id/read", threadHandler.MarkThreadRead) // PUT /v1/threads/:id/read

	manage := handler.NewManageMessagesHandler(threadHandler, limiter)
	e.Match([]string{http.MethodGet, http.MethodPost}, "/manageMessages", manage.Dispatch, authMiddleware.Authenticate)
}
