package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Product is a seller-owned listing. Image URLs are stored in a JSON
// column and (un)marshaled at this boundary.
type Product struct {
	ID          uint64      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	SellerID    uint64      `json:"seller_id"`
	ImagePaths  []string    `json:"image_path"`
	Date        time.Time   `json:"date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Categories  []*Category `json:"categories,omitempty"`
}

// ProductSearch carries the listing filters: free-text search over name
// and description, optional ordering and category filter, 1-based page.
type ProductSearch struct {
	Query       string
	OrderBy     string // "price" | "title" | ""
	CategoryIDs []uint64
	Page        int
	PerPage     int
}

type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productCols = "id, name, description, price, seller_id, image_path, date, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var (
		p   Product
		raw []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.SellerID, &raw,
		&p.Date, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ImagePaths = []string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.ImagePaths); err != nil {
			p.ImagePaths = []string{}
		}
	}
	return &p, nil
}

// Create inserts the listing and populates ID and timestamp fields.
func (r *ProductRepo) Create(ctx context.Context, p *Product) error {
	raw, err := json.Marshal(p.ImagePaths)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO products (name, description, price, seller_id, image_path) VALUES (?,?,?,?,?)",
		p.Name, p.Description, p.Price, p.SellerID, raw)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// GetByID fetches a product with its categories.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachCategories(ctx, []*Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListBySeller returns every listing owned by the given user.
func (r *ProductRepo) ListBySeller(ctx context.Context, sellerID uint64) ([]*Product, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+productCols+" FROM products WHERE seller_id=? ORDER BY id", sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Search runs the filtered, paginated listing query and returns the page
// of products plus the total number of pages.
func (r *ProductRepo) Search(ctx context.Context, s ProductSearch) ([]*Product, int, error) {
	if s.PerPage <= 0 {
		s.PerPage = 8
	}
	if s.Page <= 0 {
		s.Page = 1
	}

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(s.Query); q != "" {
		where = append(where, "(name LIKE ? OR description LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if len(s.CategoryIDs) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(s.CategoryIDs)), ",")
		where = append(where,
			"id IN (SELECT product_id FROM product_categories WHERE category_id IN ("+ph+"))")
		for _, id := range s.CategoryIDs {
			args = append(args, id)
		}
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	totalPages := (total + s.PerPage - 1) / s.PerPage

	order := " ORDER BY id"
	switch s.OrderBy {
	case "price":
		order = " ORDER BY price ASC"
	case "title":
		order = " ORDER BY name ASC"
	}

	q := fmt.Sprintf("SELECT %s FROM products%s%s LIMIT ? OFFSET ?", productCols, cond, order)
	args = append(args, s.PerPage, (s.Page-1)*s.PerPage)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachCategories(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, totalPages, nil
}

// UpdateFields writes the allow-listed mutable fields only; seller_id and
// creation date never change after insert.
func (r *ProductRepo) UpdateFields(ctx context.Context, id uint64, name, description string, price float64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE products SET name=?, description=?, price=? WHERE id=?",
		name, description, price, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateImagePaths replaces the stored image URL list.
func (r *ProductRepo) UpdateImagePaths(ctx context.Context, id uint64, paths []string) error {
	raw, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE products SET image_path=? WHERE id=?", raw, id)
	return err
}

// Delete removes the listing; category links go via FK cascade, with an
// explicit unlink for parity on engines without FK enforcement.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM product_categories WHERE product_id=?", id); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func collectProducts(rows *sql.Rows) ([]*Product, error) {
	out := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// attachCategories batch-loads the categories of the given products with a
// single join query instead of one query per product.
func (r *ProductRepo) attachCategories(ctx context.Context, products []*Product) error {
	if len(products) == 0 {
		return nil
	}
	byID := make(map[uint64]*Product, len(products))
	ids := make([]any, 0, len(products))
	for _, p := range products {
		p.Categories = []*Category{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := r.DB.QueryContext(ctx,
		`SELECT pc.product_id, c.id, c.name
		 FROM product_categories pc
		 JOIN categories c ON c.id = pc.category_id
		 WHERE pc.product_id IN (`+ph+`) ORDER BY c.id`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pid uint64
			cat Category
		)
		if err := rows.Scan(&pid, &cat.ID, &cat.Name); err != nil {
			return err
		}
		if p, ok := byID[pid]; ok {
			p.Categories = append(p.Categories, &cat)
		}
	}
	return rows.Err()
}
