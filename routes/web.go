package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes wires the service's root info and status endpoints.
func SetupWebRoutes(router *gin.Engine) {
	web := router.Group("/")
	{
		web.GET("/", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"message": "address resolution service",
				"docs":    "/v1/compare",
			})
		})

		web.GET("/status", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "running"})
		})
	}
}
