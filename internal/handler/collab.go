package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/service"
)

// CollabHandler serves the per-case comment log and file attachments.
type CollabHandler struct {
	Collab *service.CollabService
	Log    *zap.Logger
}

func NewCollabHandler(collab *service.CollabService, log *zap.Logger) *CollabHandler {
	return &CollabHandler{Collab: collab, Log: log}
}

type commentReq struct {
	Comment string `json:"comment"`
}

type fileReq struct {
	FileName string         `json:"fileName"`
	FileType model.FileType `json:"fileType"`
	FileURL  string         `json:"fileUrl"`
	FileKey  string         `json:"fileKey"`
}

func (h *CollabHandler) AddComment(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req commentReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	entry, err := h.Collab.AddComment(ctx, actor(c), id, req.Comment)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"data": entry})
}

func (h *CollabHandler) ListComments(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	entries, err := h.Collab.ListComments(ctx, actor(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": entries})
}

func (h *CollabHandler) EditComment(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := objectIDParam(c, "commentId")
	if err != nil {
		return nil
	}
	var req commentReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Collab.EditComment(ctx, actor(c), id, commentID, req.Comment); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "comment updated"})
}

func (h *CollabHandler) DeleteComment(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := objectIDParam(c, "commentId")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Collab.DeleteComment(ctx, actor(c), id, commentID); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "comment deleted"})
}

func (h *CollabHandler) AddFile(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req fileReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	f, err := h.Collab.AddFile(ctx, actor(c), id, service.FileInput{
		FileName: req.FileName,
		FileType: req.FileType,
		FileURL:  req.FileURL,
		FileKey:  req.FileKey,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"data": f})
}

func (h *CollabHandler) ListFiles(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	files, err := h.Collab.ListFiles(ctx, actor(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": files})
}

func (h *CollabHandler) DeleteFile(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	fileID, err := objectIDParam(c, "fileId")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Collab.DeleteFile(ctx, actor(c), id, fileID); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "file deleted"})
}
