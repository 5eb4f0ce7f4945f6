package driver

import (
	"go-fleet/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, jwtSecret string) {
	drivers := r.Group("/drivers")
	drivers.Use(middleware.AuthMiddleware(jwtSecret))
	{
		drivers.POST("", middleware.RoleMiddleware(middleware.RoleAdmin), handler.Create)
		drivers.GET("/:code", handler.GetByCode)
		drivers.GET("/:code/balance", handler.GetBalance)
	}
}
