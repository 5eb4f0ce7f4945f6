package leave

import (
	"go-fleet/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	jwtSecret string,
	rdb *redis.Client,
	logger *zap.Logger,
) {
	deciders := middleware.RoleMiddleware(middleware.RoleAdmin, middleware.RoleDispatcher)

	leaves := r.Group("/leaves")
	leaves.Use(middleware.AuthMiddleware(jwtSecret), middleware.ExtractUserID())
	{
		leaves.GET("", handler.GetAll)
		leaves.GET("/:id", handler.GetByID)
		leaves.POST("", middleware.Idempotency(rdb, logger), handler.Submit)
		leaves.POST("/:id/approve", deciders, handler.Approve)
		leaves.POST("/:id/reject", deciders, handler.Reject)
		leaves.DELETE("/:id", deciders, handler.Delete)
	}
}
