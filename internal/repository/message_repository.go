package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Message belongs to exactly one chat. Content is immutable after
// creation; only the viewed flag may change, and only from false to true.
type Message struct {
	ID        uint64    `json:"id"`
	ChatID    uint64    `json:"chat_id"`
	SenderID  uint64    `json:"sender_id"`
	Content   string    `json:"content"`
	Viewed    bool      `json:"viewed"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

const messageCols = "id, chat_id, sender_id, content, viewed, created_at"

func scanMessage(row interface{ Scan(...any) error }) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.Viewed, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create appends a message with viewed=false, populating ID, Viewed and
// CreatedAt from the stored row.
func (r *MessageRepo) Create(ctx context.Context, m *Message) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO messages (chat_id, sender_id, content) VALUES (?,?,?)",
		m.ChatID, m.SenderID, m.Content)
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
	*m = *stored
	return nil
}

// GetByID fetches a single message.
func (r *MessageRepo) GetByID(ctx context.Context, id uint64) (*Message, error) {
	m, err := scanMessage(r.DB.QueryRowContext(ctx,
		"SELECT "+messageCols+" FROM messages WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return m, err
}

// ListByChat returns a chat's messages in insertion order: created_at
// first, id as the tie-breaker.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID uint64) ([]*Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+messageCols+" FROM messages WHERE chat_id=? ORDER BY created_at, id", chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkViewed sets the viewed flag. The flag is monotonic: there is no
// statement anywhere that writes viewed=0.
func (r *MessageRepo) MarkViewed(ctx context.Context, id uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE messages SET viewed=1 WHERE id=?", id)
	return err
}

// Delete removes a single message.
func (r *MessageRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM messages WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMessageNotFound
	}
	return nil
}
