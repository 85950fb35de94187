package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/ingest"
	"commissioning-backend/internal/middleware"
	"commissioning-backend/internal/service"
	"commissioning-backend/pkg/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes applies when no upload limit is configured.
const DefaultMaxUploadBytes int64 = 20 << 20

type RoomConfigHandler struct {
	roomConfigService *service.RoomConfigService
	maxUploadBytes    int64
	logger            *zap.Logger
}

func NewRoomConfigHandler(roomConfigService *service.RoomConfigService, maxUploadBytes int64, logger *zap.Logger) *RoomConfigHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &RoomConfigHandler{
		roomConfigService: roomConfigService,
		maxUploadBytes:    maxUploadBytes,
		logger:            logger,
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

func readLimited(limit int64, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.InvalidInput("upload exceeds %d bytes", limit)
		}
		return nil, apperr.InvalidInput("failed to read request body")
	}
	if int64(len(data)) > limit {
		return nil, apperr.InvalidInput("upload exceeds %d bytes", limit)
	}
	return data, nil
}

// uploadedFile reads the multipart "file" field
func uploadedFile(c *gin.Context, limit int64) (*multipart.FileHeader, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+(1<<20))
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, apperr.InvalidInput("upload exceeds %d bytes", limit)
		}
		return nil, nil, apperr.InvalidInput("multipart field \"file\" is required")
	}
	if header.Size > limit {
		return nil, nil, apperr.InvalidInput("upload exceeds %d bytes", limit)
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, apperr.InvalidInput("failed to read uploaded file")
	}
	defer f.Close()

	data, err := readLimited(limit, f)
	if err != nil {
		return nil, nil, err
	}
	return header, data, nil
}

// readPayload accepts a raw JSON body or a multipart upload of a .json,
// .xlsx or .xls file.
func (h *RoomConfigHandler) readPayload(c *gin.Context) (service.Payload, error) {
	if !isMultipart(c) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
		data, err := readLimited(h.maxUploadBytes, c.Request.Body)
		if err != nil {
			return service.Payload{}, err
		}
		return service.Payload{JSON: data}, nil
	}

	header, data, err := uploadedFile(c, h.maxUploadBytes)
	if err != nil {
		return service.Payload{}, err
	}
	switch {
	case strings.EqualFold(filepath.Ext(header.Filename), ".json"):
		return service.Payload{JSON: data}, nil
	case ingest.IsWorkbookName(header.Filename):
		return service.Payload{Workbook: &service.Workbook{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}}, nil
	default:
		return service.Payload{}, apperr.New(apperr.KindInvalidFileType,
			"unsupported file type %q: upload a .json, .xlsx or .xls file", filepath.Ext(header.Filename))
	}
}

// GetRoomConfig returns the config of a room type
func (h *RoomConfigHandler) GetRoomConfig(c *gin.Context) {
	cfg, err := h.roomConfigService.GetRoomConfig(c.Request.Context(), c.Param("projectId"), c.Param("roomTypeId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, cfg)
}

// ListRoomConfigs returns the configs of a room type (zero or one)
func (h *RoomConfigHandler) ListRoomConfigs(c *gin.Context) {
	configs, err := h.roomConfigService.ListRoomConfigs(c.Request.Context(), c.Param("projectId"), c.Param("roomTypeId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, configs)
}

// CreateRoomConfig stores a new config; a second create is a conflict
func (h *RoomConfigHandler) CreateRoomConfig(c *gin.Context) {
	payload, err := h.readPayload(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	cfg, err := h.roomConfigService.CreateRoomConfig(c.Request.Context(),
		c.Param("projectId"), c.Param("roomTypeId"), payload, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.CreatedResponse(c, cfg)
}

// ReplaceRoomConfig creates or overwrites the config
func (h *RoomConfigHandler) ReplaceRoomConfig(c *gin.Context) {
	payload, err := h.readPayload(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	cfg, created, err := h.roomConfigService.ReplaceRoomConfig(c.Request.Context(),
		c.Param("projectId"), c.Param("roomTypeId"), payload, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if created {
		utils.CreatedResponse(c, cfg)
		return
	}
	utils.SuccessResponse(c, cfg)
}

// DeleteRoomConfig removes the config and the room type's files
func (h *RoomConfigHandler) DeleteRoomConfig(c *gin.Context) {
	err := h.roomConfigService.DeleteRoomConfig(c.Request.Context(), c.Param("projectId"), c.Param("roomTypeId"), middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.MessageResponse(c, "Room config deleted successfully")
}

// ListBlobs lists the files stored for a room type
func (h *RoomConfigHandler) ListBlobs(c *gin.Context) {
	files, err := h.roomConfigService.ListFiles(c.Request.Context(), c.Param("projectId"), c.Param("roomTypeId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, files)
}

// GetBlob downloads one stored file
func (h *RoomConfigHandler) GetBlob(c *gin.Context) {
	name := c.Param("fileName")
	data, err := h.roomConfigService.ReadFile(c.Request.Context(), c.Param("projectId"), c.Param("roomTypeId"), name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	contentType := mimetype.Detect(data).String()
	if strings.EqualFold(filepath.Ext(name), ".json") {
		contentType = "application/json; charset=utf-8"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}

// DeleteBlob removes one stored file other than config.json
func (h *RoomConfigHandler) DeleteBlob(c *gin.Context) {
	name := c.Param("fileName")
	err := h.roomConfigService.DeleteFile(c.Request.Context(), c.Param("projectId"), c.Param("roomTypeId"), name, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.MessageResponse(c, "File deleted successfully")
}
