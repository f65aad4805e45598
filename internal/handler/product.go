package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/policy"
	"github.com/iliyamo/marketplace-api/internal/repository"
	"github.com/iliyamo/marketplace-api/internal/storage"
)

// productsPerPage is the fixed catalog page size.
const productsPerPage = 8

// ProductHandler implements the catalog endpoints. The catalog is
// peripheral: plain CRUD plus image management, gated by the product
// ownership policy.
type ProductHandler struct {
	Products   *repository.ProductRepo
	Categories *repository.CategoryRepo
	Links      *repository.ProductCategoryRepo
	Files      *storage.Store
}

func NewProductHandler(products *repository.ProductRepo, categories *repository.CategoryRepo, links *repository.ProductCategoryRepo, files *storage.Store) *ProductHandler {
	return &ProductHandler{Products: products, Categories: categories, Links: links, Files: files}
}

// Index is the public, paginated catalog search.
func (h *ProductHandler) Index(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	search := repository.ProductSearch{
		Query:       c.QueryParam("search"),
		OrderBy:     c.QueryParam("orderby"),
		CategoryIDs: parseCategoryIDs(c.QueryParams()["categories"]),
		Page:        page,
		PerPage:     productsPerPage,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, totalPages, err := h.Products.Search(ctx, search)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "no products match the search criteria"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "total_pages": totalPages})
}

// Show returns one product with its categories.
func (h *ProductHandler) Show(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, p)
}

// UserProducts lists the caller's own listings.
func (h *ProductHandler) UserProducts(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Products.ListBySeller(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user has no products"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

// productForm is the validated multipart payload shared by Store/Update.
type productForm struct {
	name        string
	description string
	price       float64
	categories  []string
	images      []*multipart.FileHeader
}

func (h *ProductHandler) bindProductForm(c echo.Context, imagesRequired bool) (productForm, map[string]string) {
	var f productForm
	fields := map[string]string{}

	f.name = strings.TrimSpace(c.FormValue("name"))
	if f.name == "" {
		fields["name"] = "name is required"
	}
	f.description = strings.TrimSpace(c.FormValue("description"))
	if f.description == "" {
		fields["description"] = "description is required"
	}
	priceStr := c.FormValue("price")
	price, err := strconv.ParseFloat(priceStr, 64)
	if priceStr == "" || err != nil || price < 0 {
		fields["price"] = "price must be a number"
	}
	f.price = price

	for _, v := range formValues(c, "categories") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				f.categories = append(f.categories, name)
			}
		}
	}
	if len(f.categories) == 0 {
		fields["categories"] = "categories are required"
	}

	if form, err := c.MultipartForm(); err == nil {
		f.images = form.File["images"]
	}
	if imagesRequired && len(f.images) == 0 {
		fields["images"] = "images are required"
	}
	for _, img := range f.images {
		if img.Size > maxUploadBytes {
			fields["images"] = "each image must not exceed 2MB"
			break
		}
		if !allowedImage(img.Filename) {
			fields["images"] = "images must be jpeg, png, jpg or gif"
			break
		}
	}
	if len(fields) > 0 {
		return f, fields
	}
	return f, nil
}

// Store creates a listing: the row first, then images into the product's
// folder, then the category links (created on first use).
func (h *ProductHandler) Store(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	form, fields := h.bindProductForm(c, true)
	if fields != nil {
		return validationError(c, fields)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	p := &repository.Product{
		Name:        form.name,
		Description: form.description,
		Price:       form.price,
		SellerID:    ident.ID,
		ImagePaths:  []string{},
	}
	if err := h.Products.Create(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create product failed"})
	}

	urls, err := h.storeImages(p, form.images)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store images failed"})
	}
	if err := h.Products.UpdateImagePaths(ctx, p.ID, urls); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	p.ImagePaths = urls

	if err := h.linkCategories(ctx, p.ID, form.categories); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "link categories failed"})
	}

	created, err := h.Products.GetByID(ctx, p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusCreated, created)
}

// Update rewrites a listing. Only the owner (or a superuser) may mutate;
// old image files are removed only after the replacements are stored.
func (h *ProductHandler) Update(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !policy.CanModifyProduct(ident, p) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to modify this product"})
	}

	form, fields := h.bindProductForm(c, false)
	if fields != nil {
		return validationError(c, fields)
	}

	if err := h.Products.UpdateFields(ctx, id, form.name, form.description, form.price); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := h.linkCategories(ctx, id, form.categories); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "link categories failed"})
	}

	if len(form.images) > 0 {
		p.Name = form.name // folder slug follows the current name
		urls, err := h.storeImages(p, form.images)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store images failed"})
		}
		if err := h.Products.UpdateImagePaths(ctx, id, urls); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		// New files are durable; now the old ones can go.
		for _, old := range p.ImagePaths {
			h.Files.Remove(old)
		}
	}

	updated, err := h.Products.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, updated)
}

// Destroy removes a listing, its category links and its stored images.
func (h *ProductHandler) Destroy(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !policy.CanModifyProduct(ident, p) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to delete this product"})
	}

	if err := h.Products.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	for _, img := range p.ImagePaths {
		h.Files.Remove(img)
	}
	h.Files.RemoveEntity("product_images", p.ID, p.Name)
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) storeImages(p *repository.Product, images []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		src, err := img.Open()
		if err != nil {
			return nil, err
		}
		url, err := h.Files.SaveProductImage(p.ID, p.Name, img.Filename, src)
		src.Close()
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// linkCategories resolves names to categories (creating missing ones) and
// relinks the product to exactly that set.
func (h *ProductHandler) linkCategories(ctx context.Context, productID uint64, names []string) error {
	ids := make([]uint64, 0, len(names))
	for _, name := range names {
		cat, err := h.Categories.FirstOrCreate(ctx, name)
		if err != nil {
			return err
		}
		ids = append(ids, cat.ID)
	}
	return h.Links.ReplaceForProduct(ctx, productID, ids)
}

func parseCategoryIDs(values []string) []uint64 {
	var out []uint64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			if id, err := strconv.ParseUint(part, 10, 64); err == nil {
				out = append(out, id)
			}
		}
	}
	return out
}

// formValues returns all values for a multipart/urlencoded form key.
func formValues(c echo.Context, key string) []string {
	if form, err := c.MultipartForm(); err == nil && len(form.Value[key]) > 0 {
		return form.Value[key]
	}
	if v := c.FormValue(key); v != "" {
		return []string{v}
	}
	return nil
}
