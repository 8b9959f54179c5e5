package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/gitlab-mr-batch/internal/model"
	"github.com/yakoovad/gitlab-mr-batch/pkg/logger"
	"go.uber.org/zap"
)

type createMergeRequestsRequest struct {
	ProjectIDs []int `json:"projectIds" validate:"dive,gt=0"`
	model.MergeRequestCreateParams
}

type createMergeRequestsResponse struct {
	Results []*model.MergeRequestResult `json:"results"`
	Summary model.BatchSummary          `json:"summary"`
}

func (h *Handler) ListMergeRequests(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		State   string `query:"state"`
		Scope   string `query:"scope"`
		Page    int    `query:"page" validate:"gte=0"`
		PerPage int    `query:"perPage" validate:"gte=0"`
	}

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	page, err := h.projects.ListMergeRequests(e.Request().Context(), credentialFromContext(e), req.State, req.Scope, req.Page, req.PerPage)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, page)
}

func (h *Handler) CheckMergeRequests(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		ProjectIDs   []int  `json:"projectIds" validate:"dive,gt=0"`
		SourceBranch string `json:"sourceBranch" validate:"required"`
	}

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("checking open merge requests",
		zap.Int("projects", len(req.ProjectIDs)),
		zap.String("source_branch", req.SourceBranch))

	checks, err := h.check.CheckMergeRequests(e.Request().Context(), credentialFromContext(e), req.ProjectIDs, req.SourceBranch)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, checks)
}

func (h *Handler) CreateMergeRequests(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req createMergeRequestsRequest
	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	results, err := h.batch.CreateMergeRequests(batchContext(e), credentialFromContext(e), req.ProjectIDs, &req.MergeRequestCreateParams, nil)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, createMergeRequestsResponse{
		Results: results,
		Summary: model.Summarize(results),
	})
}

// StreamMergeRequests runs the same batch as CreateMergeRequests but writes
// newline-delimited JSON: one result line per project as soon as it settles,
// then a single summary line.
func (h *Handler) StreamMergeRequests(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req createMergeRequestsRequest
	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	res := e.Response()
	enc := json.NewEncoder(res)
	started := false

	write := func(v any) {
		if !started {
			res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
			res.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(v); err != nil {
			l.Warn("failed to write stream line", zap.Error(err))
			return
		}
		res.Flush()
	}

	results, err := h.batch.CreateMergeRequests(batchContext(e), credentialFromContext(e), req.ProjectIDs, &req.MergeRequestCreateParams,
		func(r *model.MergeRequestResult) { write(r) })
	if err != nil {
		return h.transportError(e, err)
	}

	write(struct {
		Summary model.BatchSummary `json:"summary"`
	}{Summary: model.Summarize(results)})

	return nil
}

// batchContext keeps request values such as the logger but ignores client
// disconnects: once started, every project in a batch is submitted.
func batchContext(e echo.Context) context.Context {
	return context.WithoutCancel(e.Request().Context())
}

func (h *Handler) CloseMergeRequest(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		ProjectID int `param:"projectId" validate:"required,gt=0"`
		IID       int `param:"mergeRequestIid" validate:"required,gt=0"`
	}

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	mr, err := h.check.CloseMergeRequest(e.Request().Context(), credentialFromContext(e), req.ProjectID, req.IID)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, mr)
}
