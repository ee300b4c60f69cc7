package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/repository"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	categories *repository.CategoryRepository
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(categories *repository.CategoryRepository) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /api/v1/categories.
func (h *CategoryHandler) Create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	category := &domain.Category{
		ID:   uuid.New().String(),
		Name: req.Name,
	}
	if err := h.categories.Create(c.Request.Context(), category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, category)
}

// Get handles GET /api/v1/categories/:id.
func (h *CategoryHandler) Get(c *gin.Context) {
	category, err := h.categories.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get category: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, category)
}

// List handles GET /api/v1/categories.
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list categories: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "count": len(categories)})
}
