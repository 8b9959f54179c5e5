package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/yakoovad/gitlab-mr-batch/internal/service"
	"github.com/yakoovad/gitlab-mr-batch/pkg/logger"
	"go.uber.org/zap"
)

type Handler struct {
	session  *service.SessionService
	projects *service.ProjectService
	batch    *service.BatchService
	check    *service.CheckService

	healthChecker HealthChecker

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithSessionService(s *service.SessionService) *Handler {
	h.session = s
	return h
}

func (h *Handler) WithProjectService(p *service.ProjectService) *Handler {
	h.projects = p
	return h
}

func (h *Handler) WithBatchService(b *service.BatchService) *Handler {
	h.batch = b
	return h
}

func (h *Handler) WithCheckService(c *service.CheckService) *Handler {
	h.check = c
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	e.POST("/auth/validate", h.Login)

	secured := e.Group("", AuthMiddleware(h.session))

	secured.POST("/auth/logout", h.Logout)

	secured.GET("/projects", h.ListProjects)
	secured.GET("/projects/:id/branches", h.ListBranches)
	secured.GET("/projects/:id/branches/:branchName/exists", h.BranchExists)

	secured.GET("/merge-requests", h.ListMergeRequests)
	secured.POST("/merge-requests/check", h.CheckMergeRequests)
	secured.POST("/merge-requests/create", h.CreateMergeRequests)
	secured.POST("/merge-requests/create/stream", h.StreamMergeRequests)
	secured.POST("/merge-requests/:projectId/:mergeRequestIid/close", h.CloseMergeRequest)
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) Login(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Token    string `json:"token" validate:"required"`
		Remember bool   `json:"remember"`
	}

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return e.JSON(statusOf(err.Code), loginResponse{Error: err.Message})
	}

	token, err := h.session.Login(e.Request().Context(), req.Token, req.Remember)
	if err != nil {
		return e.JSON(statusOf(err.Code), loginResponse{Error: err.Message})
	}

	return e.JSON(http.StatusOK, loginResponse{Success: true, Token: token})
}

func (h *Handler) Logout(e echo.Context) error {
	cred := credentialFromContext(e)

	if err := h.session.Logout(e.Request().Context(), cred.Subject); err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ListProjects(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Page    int    `query:"page" validate:"gte=0"`
		PerPage int    `query:"perPage" validate:"gte=0"`
		Search  string `query:"search"`
		Refresh bool   `query:"refresh"`
	}

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	page, err := h.projects.ListProjects(e.Request().Context(), credentialFromContext(e), req.Page, req.PerPage, req.Search, req.Refresh)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, page)
}

func (h *Handler) ListBranches(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		ProjectID int `param:"id" validate:"required,gt=0"`
	}

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	branches, err := h.projects.ListBranches(e.Request().Context(), credentialFromContext(e), req.ProjectID)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, branches)
}

func (h *Handler) BranchExists(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		ProjectID int    `param:"id" validate:"required,gt=0"`
		Branch    string `param:"branchName" validate:"required"`
	}

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	exists, err := h.projects.BranchExists(e.Request().Context(), credentialFromContext(e), req.ProjectID, req.Branch)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]bool{"exists": exists})
}

// transportError writes err with its HTTP status. An UNAUTHORIZED error on a
// signed-in request means GitLab no longer accepts the stored token, so the
// session is dropped before answering.
func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	if err.Code == service.ErrorCodeUnauthorized {
		if cred := credentialFromContext(e); cred != nil && h.session != nil {
			logger.FromContext(e.Request().Context()).Info("gitlab rejected stored token, ending session")
			if logoutErr := h.session.Logout(e.Request().Context(), cred.Subject); logoutErr != nil {
				logger.FromContext(e.Request().Context()).Error("failed to end session", zap.Any("error", logoutErr))
			}
		}
	}

	response := struct {
		Error *service.Error `json:"error"`
	}{Error: err}

	return e.JSON(statusOf(err.Code), response)
}

func statusOf(code service.ErrorCode) int {
	switch code {
	case service.ErrorCodeInvalidBody:
		return http.StatusBadRequest
	case service.ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case service.ErrorCodeForbidden:
		return http.StatusForbidden
	case service.ErrorCodeNotFound:
		return http.StatusNotFound
	case service.ErrorCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
