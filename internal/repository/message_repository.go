package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

const messageColumns = `id, ticket_id, contact_id, body, from_me, read, media_url, media_type,
               quoted_msg_id, ack, remote_jid, participant, data_json, created_at, updated_at`

// MessageRepository encapsulates message persistence. The primary key is the
// provider message id, so Upsert gives idempotent ingestion for free.
type MessageRepository interface {
	Upsert(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	CountUnread(ctx context.Context, ticketID int64) (int, error)
	// ListUnread returns the ticket's unread inbound messages, most recent
	// first, for provider read receipts.
	ListUnread(ctx context.Context, ticketID int64) ([]domain.Message, error)
	MarkAllRead(ctx context.Context, ticketID int64) error
	// LastFromMe returns the organization's most recent outbound message on
	// the ticket.
	LastFromMe(ctx context.Context, ticketID int64) (*domain.Message, error)
	UpdateAck(ctx context.Context, id string, ack domain.AckLevel) error
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Upsert(ctx context.Context, message *domain.Message) error {
	const query = `
        INSERT INTO messages (id, ticket_id, contact_id, body, from_me, read, media_url, media_type, quoted_msg_id, ack, remote_jid, participant, data_json)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (id) DO UPDATE SET
            body=EXCLUDED.body,
            read=EXCLUDED.read,
            media_url=EXCLUDED.media_url,
            media_type=EXCLUDED.media_type,
            ack=EXCLUDED.ack,
            data_json=EXCLUDED.data_json,
            updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		message.ID,
		message.TicketID,
		message.ContactID,
		message.Body,
		message.FromMe,
		message.Read,
		message.MediaURL,
		message.MediaType,
		message.QuotedMsgID,
		message.Ack,
		message.RemoteJid,
		message.Participant,
		message.DataJSON,
	).Scan(&message.CreatedAt, &message.UpdatedAt)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *messageRepository) CountUnread(ctx context.Context, ticketID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE ticket_id=$1 AND read=false`
	var count int
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *messageRepository) ListUnread(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE ticket_id=$1 AND from_me=false AND read=false
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) MarkAllRead(ctx context.Context, ticketID int64) error {
	const query = `UPDATE messages SET read=true, updated_at=NOW() WHERE ticket_id=$1 AND read=false`
	_, err := r.pool.Exec(ctx, query, ticketID)
	return err
}

func (r *messageRepository) LastFromMe(ctx context.Context, ticketID int64) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE ticket_id=$1 AND from_me=true
        ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, ticketID)
}

func (r *messageRepository) UpdateAck(ctx context.Context, id string, ack domain.AckLevel) error {
	const query = `UPDATE messages SET ack=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, ack, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *messageRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Message, error) {
	var message domain.Message
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&message.ID,
		&message.TicketID,
		&message.ContactID,
		&message.Body,
		&message.FromMe,
		&message.Read,
		&message.MediaURL,
		&message.MediaType,
		&message.QuotedMsgID,
		&message.Ack,
		&message.RemoteJid,
		&message.Participant,
		&message.DataJSON,
		&message.CreatedAt,
		&message.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &message, nil
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(
			&message.ID,
			&message.TicketID,
			&message.ContactID,
			&message.Body,
			&message.FromMe,
			&message.Read,
			&message.MediaURL,
			&message.MediaType,
			&message.QuotedMsgID,
			&message.Ack,
			&message.RemoteJid,
			&message.Participant,
			&message.DataJSON,
			&message.CreatedAt,
			&message.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, message)
	}
	return result, rows.Err()
}
