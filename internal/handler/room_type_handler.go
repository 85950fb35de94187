package handler

import (
	"commissioning-backend/internal/middleware"
	"commissioning-backend/internal/service"
	"commissioning-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RoomTypeHandler struct {
	roomTypeService *service.RoomTypeService
	logger          *zap.Logger
}

func NewRoomTypeHandler(roomTypeService *service.RoomTypeService, logger *zap.Logger) *RoomTypeHandler {
	return &RoomTypeHandler{
		roomTypeService: roomTypeService,
		logger:          logger,
	}
}

type RoomTypeRequest struct {
	Name string `json:"name" binding:"required"`
}

type DeleteRoomTypeRequest struct {
	RoomTypeID string `json:"roomTypeId" binding:"required"`
}

// ListRoomTypes returns the room types of a project
func (h *RoomTypeHandler) ListRoomTypes(c *gin.Context) {
	roomTypes, err := h.roomTypeService.ListRoomTypes(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, roomTypes)
}

// CreateRoomType adds a room type; its code is derived from the name
func (h *RoomTypeHandler) CreateRoomType(c *gin.Context) {
	var req RoomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	roomType, err := h.roomTypeService.CreateRoomType(c.Request.Context(), c.Param("projectId"), req.Name, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.CreatedResponse(c, roomType)
}

// RenameRoomType renames a room type, moving its directory when the code changes
func (h *RoomTypeHandler) RenameRoomType(c *gin.Context) {
	var req RoomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	roomType, err := h.roomTypeService.RenameRoomType(c.Request.Context(),
		c.Param("projectId"), c.Param("id"), req.Name, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, roomType)
}

// DeleteRoomType removes a room type with its config and directory
func (h *RoomTypeHandler) DeleteRoomType(c *gin.Context) {
	var req DeleteRoomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "roomTypeId is required")
		return
	}

	if err := h.roomTypeService.DeleteRoomType(c.Request.Context(), c.Param("projectId"), req.RoomTypeID, middleware.Actor(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.MessageResponse(c, "Room type deleted successfully")
}
