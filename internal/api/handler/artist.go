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

// ArtistHandler handles artist CRUD endpoints. Mutations commit first and
// then dispatch a best-effort reindex; indexing never fails the request.
type ArtistHandler struct {
	artists   *repository.ArtistRepository
	reindexer *service.Reindexer
}

// NewArtistHandler creates a new artist handler.
func NewArtistHandler(artists *repository.ArtistRepository, reindexer *service.Reindexer) *ArtistHandler {
	return &ArtistHandler{
		artists:   artists,
		reindexer: reindexer,
	}
}

type artistRequest struct {
	Name string `json:"name" binding:"required"`
	Bio  string `json:"bio"`
}

// Create handles POST /api/v1/artists.
func (h *ArtistHandler) Create(c *gin.Context) {
	var req artistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	artist := &domain.Artist{
		ID:   uuid.New().String(),
		Name: req.Name,
		Bio:  req.Bio,
	}
	if err := h.artists.Create(c.Request.Context(), artist); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create artist: " + err.Error()})
		return
	}

	h.reindexer.ReindexAsync(artist.ID, domain.KindArtist)

	c.JSON(http.StatusCreated, artist)
}

// Get handles GET /api/v1/artists/:id.
func (h *ArtistHandler) Get(c *gin.Context) {
	artist, err := h.artists.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Artist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get artist: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, artist)
}

// List handles GET /api/v1/artists.
func (h *ArtistHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	artists, err := h.artists.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list artists: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists, "count": len(artists)})
}

// Update handles PUT /api/v1/artists/:id.
func (h *ArtistHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	artist, err := h.artists.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Artist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get artist: " + err.Error()})
		return
	}

	var req artistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	artist.Name = req.Name
	artist.Bio = req.Bio
	if err := h.artists.Update(ctx, artist); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update artist: " + err.Error()})
		return
	}

	h.reindexer.ReindexAsync(artist.ID, domain.KindArtist)

	c.JSON(http.StatusOK, artist)
}

// Delete handles DELETE /api/v1/artists/:id. The repository removes the
// artist and its embedding record in one transaction.
func (h *ArtistHandler) Delete(c *gin.Context) {
	if err := h.artists.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete artist: " + err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
