package handler

import (
	"net/http"

	"commissioning-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConvertHandler struct {
	roomConfigService *service.RoomConfigService
	maxUploadBytes    int64
	logger            *zap.Logger
}

func NewConvertHandler(roomConfigService *service.RoomConfigService, maxUploadBytes int64, logger *zap.Logger) *ConvertHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ConvertHandler{
		roomConfigService: roomConfigService,
		maxUploadBytes:    maxUploadBytes,
		logger:            logger,
	}
}

// Convert turns an uploaded workbook into JSON without storing anything.
// The converted document is the response body.
func (h *ConvertHandler) Convert(c *gin.Context) {
	if !isMultipart(c) {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	header, data, err := uploadedFile(c, h.maxUploadBytes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	doc, err := h.roomConfigService.ConvertWorkbook(c.Request.Context(), service.Workbook{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}
