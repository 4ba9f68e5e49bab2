package router

import (
	"net/http"

	"github.com/advault/keyword-inventory/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "keyword-inventory-api",
		})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	keywordHandler := handler.NewKeywordHandler(deps)
	dedupeHandler := handler.NewDedupeHandler(deps)
	importHandler := handler.NewImportHandler(deps)
	exportHandler := handler.NewExportHandler(deps)
	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		keywords := v1.Group("/keywords")
		{
			keywords.POST("", keywordHandler.CreateKeyword)
			keywords.GET("", keywordHandler.ListKeywords)
			keywords.GET("/stats", keywordHandler.GetStats)
			keywords.GET("/:keyword_id", keywordHandler.GetKeyword)
			keywords.PUT("/:keyword_id", keywordHandler.UpdateKeyword)
			keywords.DELETE("/:keyword_id", keywordHandler.DeleteKeyword)
		}

		dedupeRoutes := v1.Group("/dedupe")
		{
			dedupeRoutes.GET("/exact", dedupeHandler.FindExactDuplicates)
			dedupeRoutes.GET("/fuzzy", dedupeHandler.FindFuzzyDuplicates)
			dedupeRoutes.GET("/conflicts", dedupeHandler.FindConflicts)
			dedupeRoutes.POST("/merge", dedupeHandler.MergeDuplicates)
		}

		importRoutes := v1.Group("/imports")
		{
			importRoutes.POST("", importHandler.CreateImport)
			importRoutes.GET("/:import_id", importHandler.GetImport)
		}

		exportRoutes := v1.Group("/exports")
		{
			exportRoutes.POST("", exportHandler.CreateExport)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
		}
	}

	return r
}
