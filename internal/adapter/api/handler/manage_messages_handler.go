package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"schoolmsg/internal/adapter/api/middleware"
	"schoolmsg/internal/infrastructure/ratelimit"
	"schoolmsg/pkg/errors"
	"schoolmsg/pkg/response"
)

type operation struct {
	method  string
	handler echo.HandlerFunc
}

// ManageMessagesHandler serves the single /manageMessages?operation=... entry
// point that existing portal clients call.
type ManageMessagesHandler struct {
	operations map[string]operation
}

func NewManageMessagesHandler(threads *ThreadHandler, limiter ratelimit.Limiter) *ManageMessagesHandler {
	return &ManageMessagesHandler{
		operations: map[string]operation{
			"getOrCreateThread":     {http.MethodPost, middleware.RateLimit(limiter, ratelimit.ActionCreateThread)(threads.GetOrCreateThread)},
			"listThreadsForTeacher": {http.MethodGet, threads.ListThreadsForTeacher},
			"listThreadsForParent":  {http.MethodGet, threads.ListThreadsForParent},
			"listMessages":          {http.MethodGet, threads.ListMessages},
			"sendMessage":           {http.MethodPost, middleware.RateLimit(limiter, ratelimit.ActionSendMessage)(threads.SendMessage)},
			"markThreadRead":        {http.MethodPost, threads.MarkThreadRead},
		},
	}
}

func (h *ManageMessagesHandler) Dispatch(c echo.Context) error {
	op, ok := h.operations[c.QueryParam("operation")]
	if !ok {
		return response.Error(c, errors.Validation("Invalid operation"))
	}
	if c.Request().Method != op.method {
		return response.Error(c, errors.New("METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed, nil))
	}
	return op.handler(c)
}
