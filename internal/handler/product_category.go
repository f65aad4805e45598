package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/repository"
)

// ProductCategoryHandler exposes the raw product/category links for
// administrative use. Normal tagging happens through the product
// endpoints.
type ProductCategoryHandler struct {
	Links      *repository.ProductCategoryRepo
	Products   *repository.ProductRepo
	Categories *repository.CategoryRepo
}

func NewProductCategoryHandler(links *repository.ProductCategoryRepo, products *repository.ProductRepo, categories *repository.CategoryRepo) *ProductCategoryHandler {
	return &ProductCategoryHandler{Links: links, Products: products, Categories: categories}
}

// Index lists every link row.
func (h *ProductCategoryHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Links.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, items)
}

// Show fetches one link row.
func (h *ProductCategoryHandler) Show(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	pc, err := h.Links.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrLinkNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "link not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, pc)
}

type linkReq struct {
	ProductID  uint64 `json:"product_id" form:"product_id"`
	CategoryID uint64 `json:"category_id" form:"category_id"`
}

func (h *ProductCategoryHandler) validateLink(c echo.Context, req linkReq) map[string]string {
	fields := map[string]string{}
	if req.ProductID == 0 {
		fields["product_id"] = "product_id is required"
	}
	if req.CategoryID == 0 {
		fields["category_id"] = "category_id is required"
	}
	if len(fields) > 0 {
		return fields
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Products.GetByID(ctx, req.ProductID); err != nil {
		fields["product_id"] = "product does not exist"
	}
	if _, err := h.Categories.GetByID(ctx, req.CategoryID); err != nil {
		fields["category_id"] = "category does not exist"
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

// Store creates a link row.
func (h *ProductCategoryHandler) Store(c echo.Context) error {
	var req linkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fields := h.validateLink(c, req); fields != nil {
		return validationError(c, fields)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	pc := &repository.ProductCategory{ProductID: req.ProductID, CategoryID: req.CategoryID}
	if err := h.Links.Create(ctx, pc); err != nil {
		if err == repository.ErrLinkExists {
			return validationError(c, map[string]string{"category_id": "product already has this category"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create link failed"})
	}
	return c.JSON(http.StatusCreated, pc)
}

// Update rewrites a link row.
func (h *ProductCategoryHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req linkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fields := h.validateLink(c, req); fields != nil {
		return validationError(c, fields)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	pc := &repository.ProductCategory{ID: id, ProductID: req.ProductID, CategoryID: req.CategoryID}
	if err := h.Links.Update(ctx, pc); err != nil {
		switch err {
		case repository.ErrLinkNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "link not found"})
		case repository.ErrLinkExists:
			return validationError(c, map[string]string{"category_id": "product already has this category"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, pc)
}

// Destroy removes a link row.
func (h *ProductCategoryHandler) Destroy(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Links.Delete(ctx, id); err != nil {
		if err == repository.ErrLinkNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "link not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
