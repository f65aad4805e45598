package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/repository"
)

// categorySearchLimit caps the typeahead result set.
const categorySearchLimit = 5

// CategoryHandler exposes the category vocabulary. Reads are public;
// mutations require a session. Sellers also grow the vocabulary
// implicitly through product creation.
type CategoryHandler struct {
	Categories *repository.CategoryRepo
}

func NewCategoryHandler(categories *repository.CategoryRepo) *CategoryHandler {
	return &CategoryHandler{Categories: categories}
}

// Index is the typeahead search used by the listing form.
func (h *CategoryHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Categories.Search(ctx, c.QueryParam("search"), categorySearchLimit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, items)
}

// Show fetches one category.
func (h *CategoryHandler) Show(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cat, err := h.Categories.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, cat)
}

type categoryReq struct {
	Name string `json:"name" form:"name"`
}

// Store creates a category.
func (h *CategoryHandler) Store(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return validationError(c, map[string]string{"name": "name is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	cat := &repository.Category{Name: req.Name}
	if err := h.Categories.Create(ctx, cat); err != nil {
		if err == repository.ErrLinkExists {
			return validationError(c, map[string]string{"name": "category already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create category failed"})
	}
	return c.JSON(http.StatusCreated, cat)
}

// Update renames a category.
func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return validationError(c, map[string]string{"name": "name is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Categories.Update(ctx, id, req.Name); err != nil {
		switch err {
		case repository.ErrCategoryNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		case repository.ErrLinkExists:
			return validationError(c, map[string]string{"name": "category already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "name": req.Name})
}

// Destroy removes a category and unlinks it from all products.
func (h *CategoryHandler) Destroy(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Categories.Delete(ctx, id); err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
