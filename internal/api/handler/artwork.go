package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/repository"
	"github.com/sofia/artdex/internal/service"
)

// ArtworkHandler handles artwork CRUD endpoints, including per-image
// management. Every mutation commits first, then dispatches best-effort
// reindexing and QR generation.
type ArtworkHandler struct {
	artworks  *repository.ArtworkRepository
	reindexer *service.Reindexer
	qr        *service.QRService
}

// NewArtworkHandler creates a new artwork handler.
func NewArtworkHandler(
	artworks *repository.ArtworkRepository,
	reindexer *service.Reindexer,
	qr *service.QRService,
) *ArtworkHandler {
	return &ArtworkHandler{
		artworks:  artworks,
		reindexer: reindexer,
		qr:        qr,
	}
}

type artworkImageRequest struct {
	URL      string `json:"url" binding:"required"`
	Position int    `json:"position"`
}

type artworkRequest struct {
	Title       string                `json:"title" binding:"required"`
	Description string                `json:"description"`
	ArtistID    string                `json:"artist_id" binding:"required"`
	CategoryID  string                `json:"category_id"`
	Published   bool                  `json:"published"`
	Images      []artworkImageRequest `json:"images"`
}

// Create handles POST /api/v1/artworks.
func (h *ArtworkHandler) Create(c *gin.Context) {
	var req artworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	artwork := &domain.Artwork{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		ArtistID:    req.ArtistID,
		CategoryID:  req.CategoryID,
		Published:   req.Published,
	}
	for i, img := range req.Images {
		position := img.Position
		if position == 0 {
			position = i
		}
		artwork.Images = append(artwork.Images, domain.ArtworkImage{
			ID:        uuid.New().String(),
			ArtworkID: artwork.ID,
			URL:       img.URL,
			Position:  position,
		})
	}

	if err := h.artworks.Create(c.Request.Context(), artwork); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create artwork: " + err.Error()})
		return
	}

	h.reindexer.ReindexArtworkAsync(artwork.ID)
	h.qr.GenerateAsync(artwork.ID)

	c.JSON(http.StatusCreated, artwork)
}

// Get handles GET /api/v1/artworks/:id.
func (h *ArtworkHandler) Get(c *gin.Context) {
	artwork, err := h.artworks.GetWithRelations(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Artwork not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get artwork: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, artwork)
}

// List handles GET /api/v1/artworks.
func (h *ArtworkHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	artworks, err := h.artworks.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list artworks: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artworks": artworks, "count": len(artworks)})
}

// Update handles PUT /api/v1/artworks/:id. Text fields only; images are
// managed through the image endpoints.
func (h *ArtworkHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	artwork, err := h.artworks.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Artwork not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get artwork: " + err.Error()})
		return
	}

	var req artworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	artwork.Title = req.Title
	artwork.Description = req.Description
	artwork.ArtistID = req.ArtistID
	artwork.CategoryID = req.CategoryID
	artwork.Published = req.Published

	if err := h.artworks.Update(ctx, artwork); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update artwork: " + err.Error()})
		return
	}

	h.reindexer.ReindexAsync(artwork.ID, domain.KindArtworkText)

	c.JSON(http.StatusOK, artwork)
}

// Delete handles DELETE /api/v1/artworks/:id. The repository removes the
// artwork, its images, and every owned embedding record in one transaction.
func (h *ArtworkHandler) Delete(c *gin.Context) {
	if err := h.artworks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete artwork: " + err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// AddImage handles POST /api/v1/artworks/:id/images.
func (h *ArtworkHandler) AddImage(c *gin.Context) {
	ctx := c.Request.Context()
	artwork, err := h.artworks.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Artwork not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get artwork: " + err.Error()})
		return
	}

	var req artworkImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	img := &domain.ArtworkImage{
		ID:        uuid.New().String(),
		ArtworkID: artwork.ID,
		URL:       req.URL,
		Position:  req.Position,
	}
	if err := h.artworks.AddImage(ctx, img); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add image: " + err.Error()})
		return
	}

	h.reindexer.ReindexAsync(img.ID, domain.KindArtworkImage)

	c.JSON(http.StatusCreated, img)
}

// DeleteImage handles DELETE /api/v1/artworks/:id/images/:imageId. The
// repository removes the image together with its embedding record.
func (h *ArtworkHandler) DeleteImage(c *gin.Context) {
	if err := h.artworks.DeleteImage(c.Request.Context(), c.Param("imageId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image: " + err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// RegenerateQR handles POST /api/v1/artworks/:id/qr.
func (h *ArtworkHandler) RegenerateQR(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.artworks.GetByID(ctx, c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Artwork not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get artwork: " + err.Error()})
		return
	}

	url, err := h.qr.Generate(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_code_url": url})
}
