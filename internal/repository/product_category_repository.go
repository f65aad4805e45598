package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ProductCategory is one row of the product/category join table, exposed
// directly through the administrative tagging endpoints.
type ProductCategory struct {
	ID         uint64 `json:"id"`
	ProductID  uint64 `json:"product_id"`
	CategoryID uint64 `json:"category_id"`
}

type ProductCategoryRepo struct{ DB *sql.DB }

func NewProductCategoryRepo(db *sql.DB) *ProductCategoryRepo {
	return &ProductCategoryRepo{DB: db}
}

// List returns every product/category link.
func (r *ProductCategoryRepo) List(ctx context.Context) ([]*ProductCategory, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, product_id, category_id FROM product_categories ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*ProductCategory{}
	for rows.Next() {
		var pc ProductCategory
		if err := rows.Scan(&pc.ID, &pc.ProductID, &pc.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, &pc)
	}
	return out, rows.Err()
}

// GetByID fetches one link row.
func (r *ProductCategoryRepo) GetByID(ctx context.Context, id uint64) (*ProductCategory, error) {
	var pc ProductCategory
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, product_id, category_id FROM product_categories WHERE id=? LIMIT 1",
		id).Scan(&pc.ID, &pc.ProductID, &pc.CategoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// Create links a product to a category. Duplicate pairs are a conflict.
func (r *ProductCategoryRepo) Create(ctx context.Context, pc *ProductCategory) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO product_categories (product_id, category_id) VALUES (?,?)",
		pc.ProductID, pc.CategoryID)
	if err != nil {
		if isDuplicate(err, "uq_product_categories") {
			return ErrLinkExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	pc.ID = uint64(id)
	return nil
}

// Update rewrites a link row.
func (r *ProductCategoryRepo) Update(ctx context.Context, pc *ProductCategory) error {
	if _, err := r.GetByID(ctx, pc.ID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE product_categories SET product_id=?, category_id=? WHERE id=?",
		pc.ProductID, pc.CategoryID, pc.ID)
	if isDuplicate(err, "uq_product_categories") {
		return ErrLinkExists
	}
	return err
}

// Delete removes a link row.
func (r *ProductCategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM product_categories WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// ReplaceForProduct relinks a product to exactly the given categories.
func (r *ProductCategoryRepo) ReplaceForProduct(ctx context.Context, productID uint64, categoryIDs []uint64) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM product_categories WHERE product_id=?", productID); err != nil {
		return err
	}
	for _, cid := range categoryIDs {
		_, err := r.DB.ExecContext(ctx,
			"INSERT INTO product_categories (product_id, category_id) VALUES (?,?)", productID, cid)
		if err != nil && !isDuplicate(err, "uq_product_categories") {
			return err
		}
	}
	return nil
}
