package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tanxiaobing-hl/address-audit/app/controllers"
)

// SetupAPIRoutes wires the address comparison and admin endpoints.
func SetupAPIRoutes(router *gin.Engine, addressController *controllers.AddressController, adminController *controllers.AdminController) {
	v1 := router.Group("/v1")
	{
		v1.POST("/compare", addressController.Compare)
		v1.GET("/health", addressController.HealthCheck)

		admin := v1.Group("/admin")
		{
			admin.POST("/seed", adminController.SeedGazetteer)
			admin.POST("/meili/synonyms/rebuild", adminController.RebuildSynonyms)
			admin.POST("/cache/invalidate", adminController.InvalidateCache)
			admin.GET("/stats", adminController.GetStats)
			admin.POST("/aliases/suggest", adminController.SuggestAlias)
			admin.GET("/aliases/pending", adminController.ListPendingAliases)
			admin.POST("/aliases/:id/resolve", adminController.ResolveAlias)
		}
	}
}

// SetupHealthRoutes wires the bare liveness/readiness endpoints
// outside the /v1 prefix, for load balancer health checks.
func SetupHealthRoutes(router *gin.Engine, addressController *controllers.AddressController) {
	router.GET("/health", addressController.HealthCheck)
	router.GET("/ready", addressController.HealthCheck)
	router.GET("/live", addressController.HealthCheck)
}

// SetupAllRoutes wires middleware, web, health, and API routes onto
// router, plus a 404 fallback.
func SetupAllRoutes(router *gin.Engine, addressController *controllers.AddressController, adminController *controllers.AdminController) {
	setupMiddleware(router)

	SetupWebRoutes(router)
	SetupHealthRoutes(router, addressController)
	SetupAPIRoutes(router, addressController, adminController)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

func setupMiddleware(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
}
