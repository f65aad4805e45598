package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Category is a product tag; membership lives in product_categories.
type Category struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// Search returns up to limit categories whose name contains the query.
func (r *CategoryRepo) Search(ctx context.Context, query string, limit int) ([]*Category, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name FROM categories WHERE name LIKE ? ORDER BY id LIMIT ?",
		"%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// GetByID fetches a single category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*Category, error) {
	var c Category
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name FROM categories WHERE id=? LIMIT 1", id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a category. Duplicate names are a conflict.
func (r *CategoryRepo) Create(ctx context.Context, c *Category) error {
	res, err := r.DB.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", c.Name)
	if err != nil {
		if isDuplicate(err, "uq_categories_name") {
			return ErrLinkExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// FirstOrCreate returns the category with the given name, inserting it
// first when missing. A concurrent insert losing the unique-index race is
// resolved by re-reading.
func (r *CategoryRepo) FirstOrCreate(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name FROM categories WHERE name=? LIMIT 1", name).Scan(&c.ID, &c.Name)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	c = Category{Name: name}
	if err := r.Create(ctx, &c); err != nil {
		if errors.Is(err, ErrLinkExists) {
			err = r.DB.QueryRowContext(ctx,
				"SELECT id, name FROM categories WHERE name=? LIMIT 1", name).Scan(&c.ID, &c.Name)
			if err != nil {
				return nil, err
			}
			return &c, nil
		}
		return nil, err
	}
	return &c, nil
}

// Update renames a category.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, name string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE categories SET name=? WHERE id=?", name, id)
	if isDuplicate(err, "uq_categories_name") {
		return ErrLinkExists
	}
	return err
}

// Delete removes a category and its product links.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM product_categories WHERE category_id=?", id); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
