package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sofia/artdex/internal/api/handler"
	"github.com/sofia/artdex/internal/api/middleware"
	"github.com/sofia/artdex/internal/repository"
	"github.com/sofia/artdex/internal/service"
)

// Dependencies bundles everything the router needs.
type Dependencies struct {
	Artists    *repository.ArtistRepository
	Artworks   *repository.ArtworkRepository
	Categories *repository.CategoryRepository
	Embeddings *repository.EmbeddingRepository
	Reindexer  *service.Reindexer
	Backfill   *service.Backfill
	QR         *service.QRService

	Mode           string
	AllowedOrigins []string
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(deps Dependencies) *gin.Engine {
	switch deps.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  deps.AllowedOrigins,
		AllowAllOrigins: len(deps.AllowedOrigins) == 0,
	}))

	healthHandler := handler.NewHealthHandler()
	artistHandler := handler.NewArtistHandler(deps.Artists, deps.Reindexer)
	artworkHandler := handler.NewArtworkHandler(deps.Artworks, deps.Reindexer, deps.QR)
	categoryHandler := handler.NewCategoryHandler(deps.Categories)
	adminHandler := handler.NewAdminHandler(deps.Embeddings, deps.Backfill, deps.QR)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Artists
		v1.POST("/artists", artistHandler.Create)
		v1.GET("/artists", artistHandler.List)
		v1.GET("/artists/:id", artistHandler.Get)
		v1.PUT("/artists/:id", artistHandler.Update)
		v1.DELETE("/artists/:id", artistHandler.Delete)

		// Artworks
		v1.POST("/artworks", artworkHandler.Create)
		v1.GET("/artworks", artworkHandler.List)
		v1.GET("/artworks/:id", artworkHandler.Get)
		v1.PUT("/artworks/:id", artworkHandler.Update)
		v1.DELETE("/artworks/:id", artworkHandler.Delete)
		v1.POST("/artworks/:id/images", artworkHandler.AddImage)
		v1.DELETE("/artworks/:id/images/:imageId", artworkHandler.DeleteImage)
		v1.POST("/artworks/:id/qr", artworkHandler.RegenerateQR)

		// Categories
		v1.POST("/categories", categoryHandler.Create)
		v1.GET("/categories", categoryHandler.List)
		v1.GET("/categories/:id", categoryHandler.Get)

		// Index maintenance
		admin := v1.Group("/admin")
		{
			admin.GET("/embeddings/stats", adminHandler.EmbeddingStats)
			admin.POST("/backfill", adminHandler.RunBackfill)
			admin.POST("/qr/backfill", adminHandler.RunQRBackfill)
		}
	}

	return r
}
