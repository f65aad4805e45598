package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Chat is a two-party conversation. Rows are stored canonically with
// user1_id < user2_id so the unique index uq_chats_pair covers both
// orderings of a pair; NormalizePair applies the same rule in code.
type Chat struct {
	ID        uint64    `json:"id"`
	User1ID   uint64    `json:"user1_id"`
	User2ID   uint64    `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatWithUsers enriches a chat row with the public summaries of both
// participants, never their full records.
type ChatWithUsers struct {
	Chat
	User1 UserSummary `json:"user1"`
	User2 UserSummary `json:"user2"`
}

// NormalizePair returns the two ids in canonical (ascending) order.
func NormalizePair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

type ChatRepo struct{ DB *sql.DB }

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{DB: db} }

// Create inserts a chat for the unordered pair {a,b}. An existing chat in
// either ordering yields ErrChatExists; the unique index makes the loser
// of two concurrent creations fail with the same error instead of
// inserting a second row.
func (r *ChatRepo) Create(ctx context.Context, a, b uint64) (*Chat, error) {
	u1, u2 := NormalizePair(a, b)

	var existing uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM chats WHERE user1_id=? AND user2_id=? LIMIT 1", u1, u2).Scan(&existing)
	if err == nil {
		return nil, ErrChatExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO chats (user1_id, user2_id) VALUES (?,?)", u1, u2)
	if err != nil {
		if isDuplicate(err, "uq_chats_pair") {
			return nil, ErrChatExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a bare chat row.
func (r *ChatRepo) GetByID(ctx context.Context, id uint64) (*Chat, error) {
	var c Chat
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user1_id, user2_id, created_at FROM chats WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.User1ID, &c.User2ID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const chatWithUsersQuery = `
SELECT c.id, c.user1_id, c.user2_id, c.created_at,
       u1.id, u1.name, u1.logo_path,
       u2.id, u2.name, u2.logo_path
FROM chats c
JOIN users u1 ON u1.id = c.user1_id
JOIN users u2 ON u2.id = c.user2_id`

func scanChatWithUsers(row interface{ Scan(...any) error }) (*ChatWithUsers, error) {
	var c ChatWithUsers
	err := row.Scan(&c.ID, &c.User1ID, &c.User2ID, &c.CreatedAt,
		&c.User1.ID, &c.User1.Name, &c.User1.LogoPath,
		&c.User2.ID, &c.User2.Name, &c.User2.LogoPath)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetWithUsers fetches a chat joined with both participant summaries.
func (r *ChatRepo) GetWithUsers(ctx context.Context, id uint64) (*ChatWithUsers, error) {
	c, err := scanChatWithUsers(r.DB.QueryRowContext(ctx, chatWithUsersQuery+" WHERE c.id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	return c, err
}

// ListForUser returns the user's chats in insertion order, each enriched
// with the two participant summaries.
func (r *ChatRepo) ListForUser(ctx context.Context, userID uint64) ([]*ChatWithUsers, error) {
	rows, err := r.DB.QueryContext(ctx,
		chatWithUsersQuery+" WHERE c.user1_id=? OR c.user2_id=? ORDER BY c.id", userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*ChatWithUsers{}
	for rows.Next() {
		c, err := scanChatWithUsers(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a chat. Messages go with it: the FK cascades, and the
// explicit wipe keeps behavior identical on engines without FK enforcement.
func (r *ChatRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM messages WHERE chat_id=?", id); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM chats WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChatNotFound
	}
	return nil
}
