package handler

import (
	"github.com/labstack/echo/v4"

	"schoolmsg/internal/adapter/api/middleware"
	"schoolmsg/internal/domain/entity"
	"schoolmsg/internal/usecase"
	"schoolmsg/pkg/errors"
	"schoolmsg/pkg/response"
)

type ThreadHandler struct {
	threadUseCase *usecase.ThreadUseCase
}

func NewThreadHandler(threadUseCase *usecase.ThreadUseCase) *ThreadHandler {
	return &ThreadHandler{
		threadUseCase: threadUseCase,
	}
}

type firstMessageRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

type getOrCreateThreadRequest struct {
	TeacherID    string               `json:"teacherId"`
	ParentID     string               `json:"parentId"`
	StudentID    string               `json:"studentId" validate:"required"`
	AcademicYear string               `json:"academicYear"`
	EnrollmentID string               `json:"enrollmentId"`
	ClassID      string               `json:"classId"`
	FirstMessage *firstMessageRequest `json:"firstMessage"`
}

type listThreadsRequest struct {
	TeacherID    string `query:"teacherId"`
	ParentID     string `query:"parentId"`
	AcademicYear string `query:"academicYear" validate:"required"`
	Limit        int    `query:"limit"`
}

type listMessagesRequest struct {
	ThreadID  string `param:"id" query:"threadId"`
	Limit     int    `query:"limit"`
	Direction string `query:"direction" validate:"omitempty,oneof=asc desc"`
}

type sendMessageRequest struct {
	ThreadID       string `json:"threadId"`
	Text           string `json:"text" validate:"required_without=Title,max=5000"`
	Title          string `json:"title" validate:"max=200"`
	IdempotencyKey string `json:"idempotencyKey" validate:"max=128"`
}

type threadRequest struct {
	ThreadID string `json:"threadId"`
}

// GetOrCreateThread opens the thread between a teacher and a parent for one enrollment.
func (h *ThreadHandler) GetOrCreateThread(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req getOrCreateThreadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	input := usecase.GetOrCreateThreadInput{
		TeacherID:    req.TeacherID,
		ParentID:     req.ParentID,
		StudentID:    req.StudentID,
		AcademicYear: req.AcademicYear,
		EnrollmentID: req.EnrollmentID,
		ClassID:      req.ClassID,
	}
	if req.FirstMessage != nil {
		input.FirstMessage = &usecase.FirstMessageInput{Text: req.FirstMessage.Text, Title: req.FirstMessage.Title}
	}

	thread, err := h.threadUseCase.GetOrCreateThread(c.Request().Context(), caller, input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"thread": thread})
}

func (h *ThreadHandler) ListThreadsForTeacher(c echo.Context) error {
	return h.listThreads(c, func(caller entity.Identity, req listThreadsRequest) ([]*entity.Thread, error) {
		return h.threadUseCase.ListThreadsForTeacher(c.Request().Context(), caller, usecase.ListThreadsInput{
			OwnerID:      req.TeacherID,
			AcademicYear: req.AcademicYear,
			Limit:        req.Limit,
		})
	})
}

func (h *ThreadHandler) ListThreadsForParent(c echo.Context) error {
	return h.listThreads(c, func(caller entity.Identity, req listThreadsRequest) ([]*entity.Thread, error) {
		return h.threadUseCase.ListThreadsForParent(c.Request().Context(), caller, usecase.ListThreadsInput{
			OwnerID:      req.ParentID,
			AcademicYear: req.AcademicYear,
			Limit:        req.Limit,
		})
	})
}

func (h *ThreadHandler) listThreads(c echo.Context, list func(entity.Identity, listThreadsRequest) ([]*entity.Thread, error)) error {
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req listThreadsRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	threads, err := list(caller, req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"threads": threads})
}

// GetThread returns one thread to a participant.
func (h *ThreadHandler) GetThread(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	thread, err := h.threadUseCase.GetThread(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"thread": thread})
}

func (h *ThreadHandler) ListMessages(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req listMessagesRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	messages, err := h.threadUseCase.ListMessages(c.Request().Context(), caller, usecase.ListMessagesInput{
		ThreadID:  pathOr(c, req.ThreadID),
		Limit:     req.Limit,
		Direction: req.Direction,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"messages": messages})
}

// SendMessage appends a message. Clients should send an Idempotency-Key header
// (or idempotencyKey field) so a retried request is not stored twice.
func (h *ThreadHandler) SendMessage(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	key := c.Request().Header.Get("Idempotency-Key")
	if key == "" {
		key = req.IdempotencyKey
	}

	receipt, err := h.threadUseCase.SendMessage(c.Request().Context(), caller, usecase.SendMessageInput{
		ThreadID:       pathOr(c, req.ThreadID),
		Text:           req.Text,
		Title:          req.Title,
		IdempotencyKey: key,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if receipt.Duplicate {
		return response.Success(c, receipt)
	}
	return response.Created(c, receipt)
}

func (h *ThreadHandler) MarkThreadRead(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req threadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	receipt, err := h.threadUseCase.MarkThreadRead(c.Request().Context(), caller, pathOr(c, req.ThreadID))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, receipt)
}

func callerFrom(c echo.Context) (entity.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return entity.Identity{}, errors.Unauthorized("Authentication required", nil)
	}
	return identity, nil
}

// pathOr prefers the :id path parameter over a thread id sent in the request.
func pathOr(c echo.Context, fallback string) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return fallback
}
