package handler

import (
	"commissioning-backend/internal/auth"
	"commissioning-backend/internal/middleware"
	"commissioning-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Handlers groups the route handlers mounted by Register.
type Handlers struct {
	Auth       *AuthHandler
	Project    *ProjectHandler
	RoomType   *RoomTypeHandler
	RoomConfig *RoomConfigHandler
	Convert    *ConvertHandler
	Audit      *AuditHandler
}

// Register mounts every route on r. Everything except /health and
// /auth/get_token requires a bearer token.
func Register(r *gin.Engine, h Handlers, verifier auth.Verifier, service string) {
	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"status":  "healthy",
			"service": service,
		})
	})

	// Auth routes (public)
	r.POST("/auth/get_token", h.Auth.GetToken)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware(verifier))

	projects := protected.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.POST("/verify_password", h.Project.VerifyPassword)
		projects.POST("/delete", h.Project.DeleteProject)
		projects.GET("/:projectId", h.Project.GetProject)
		projects.PUT("/:projectId", h.Project.UpdateProject)

		projects.GET("/:projectId/roomTypes", h.RoomType.ListRoomTypes)
		projects.POST("/:projectId/roomTypes", h.RoomType.CreateRoomType)
		projects.POST("/:projectId/roomTypes/delete", h.RoomType.DeleteRoomType)
		projects.PUT("/:projectId/roomTypes/:id", h.RoomType.RenameRoomType)
	}

	configs := protected.Group("/config/:projectId/:roomTypeId")
	{
		configs.GET("", h.RoomConfig.GetRoomConfig)
		configs.GET("/files", h.RoomConfig.ListRoomConfigs)
		configs.POST("/files", h.RoomConfig.CreateRoomConfig)
		configs.PUT("/files", h.RoomConfig.ReplaceRoomConfig)
		configs.DELETE("/files", h.RoomConfig.DeleteRoomConfig)

		configs.GET("/blobs", h.RoomConfig.ListBlobs)
		configs.GET("/blobs/:fileName", h.RoomConfig.GetBlob)
		configs.DELETE("/blobs/:fileName", h.RoomConfig.DeleteBlob)
	}

	protected.POST("/excelToJson/convert", h.Convert.Convert)
	protected.GET("/audit", h.Audit.ListAuditLogs)
}
