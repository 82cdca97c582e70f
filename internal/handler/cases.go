package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/service"
)

// CaseHandler serves case records and the status workflow.
type CaseHandler struct {
	Cases *service.CaseService
	Log   *zap.Logger
}

func NewCaseHandler(cases *service.CaseService, log *zap.Logger) *CaseHandler {
	return &CaseHandler{Cases: cases, Log: log}
}

type createCaseReq struct {
	PatientName string       `json:"patientName"`
	Intake      model.Intake `json:"intake"`
	DoctorID    uint64       `json:"doctorId"`
}

type updateIntakeReq struct {
	PatientName string       `json:"patientName"`
	Intake      model.Intake `json:"intake"`
}

type statusReq struct {
	CaseStatus string `json:"caseStatus"`
}

type priceReq struct {
	Total    *int64 `json:"total"`
	Received *int64 `json:"received"`
}

type plannerReq struct {
	PlannerID uint64     `json:"plannerId"`
	Deadline  *time.Time `json:"deadline"`
}

type progressReq struct {
	ProgressStatus model.ProgressStatus `json:"progressStatus"`
}

type stlReq struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type uploadReq struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// Create submits a new case. Doctors create for themselves; admins pass doctorId.
func (h *CaseHandler) Create(c echo.Context) error {
	var req createCaseReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Cases.Create(ctx, actor(c), service.CreateCaseInput{
		PatientName: req.PatientName,
		Intake:      req.Intake,
		DoctorID:    req.DoctorID,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"data": p})
}

// List supports ?caseStatus=, ?search=, ?limit= and ?skip=.
func (h *CaseHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	cases, err := h.Cases.List(ctx, actor(c), model.CaseQuery{
		CaseStatus: c.QueryParam("caseStatus"),
		Search:     c.QueryParam("search"),
		Limit:      queryInt(c, "limit", 0),
		Skip:       queryInt(c, "skip", 0),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": cases, "count": len(cases)})
}

func (h *CaseHandler) Get(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Cases.Get(ctx, actor(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": p})
}

func (h *CaseHandler) UpdateIntake(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req updateIntakeReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Cases.UpdateIntake(ctx, actor(c), id, req.PatientName, req.Intake)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": p})
}

func (h *CaseHandler) Delete(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Cases.Delete(ctx, actor(c), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "case deleted"})
}

// SetStatus is the workflow entry point: PUT /cases/:id/status {caseStatus}.
func (h *CaseHandler) SetStatus(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req statusReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Cases.SetStatus(ctx, actor(c), id, req.CaseStatus)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "case status updated", "data": p})
}

func (h *CaseHandler) SetPrice(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req priceReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Cases.SetPrice(ctx, actor(c), id, req.Total, req.Received)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": p})
}

func (h *CaseHandler) AssignPlanner(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req plannerReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Cases.AssignPlanner(ctx, actor(c), id, req.PlannerID, req.Deadline)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": p})
}

func (h *CaseHandler) SetProgress(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req progressReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Cases.SetProgress(ctx, actor(c), id, req.ProgressStatus)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": p})
}

// AttachSTL records an uploaded scan; 409 while the upload gate is closed.
func (h *CaseHandler) AttachSTL(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req stlReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Cases.AttachSTL(ctx, actor(c), id, req.URL, req.Key)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": p})
}

// PresignUpload hands out a short-lived PUT URL for direct browser uploads.
func (h *CaseHandler) PresignUpload(c echo.Context) error {
	var req uploadReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	up, err := h.Cases.PresignUpload(ctx, actor(c), req.FileName, req.ContentType)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": up})
}
