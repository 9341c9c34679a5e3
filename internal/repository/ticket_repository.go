package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

const ticketColumns = `id, uuid, status, unread_messages, last_message, is_group, is_bot,
               channel, contact_id, channel_number_id, user_id, queue_id, created_at, updated_at`

// TicketRepository encapsulates ticket persistence, including the lookups the
// matcher needs for session continuity.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetByIDEager returns the ticket with contact, queue, channel number and
	// tags populated, the consistent view handed back to callers.
	GetByIDEager(ctx context.Context, id int64) (*domain.Ticket, error)
	// FindActive finds the open/pending ticket for an exact
	// (contact, channel number, channel) triple.
	FindActive(ctx context.Context, contactID, channelNumberID int64, channel domain.Channel) (*domain.Ticket, error)
	// FindActiveByContact finds any open/pending ticket for the contact
	// regardless of channel number.
	FindActiveByContact(ctx context.Context, contactID int64) (*domain.Ticket, error)
	// FindLatestByContact returns the most recently updated ticket for the
	// contact across all channel numbers and statuses.
	FindLatestByContact(ctx context.Context, contactID int64) (*domain.Ticket, error)
	// FindLatest returns the most recently updated ticket for the exact
	// triple, any status.
	FindLatest(ctx context.Context, contactID, channelNumberID int64, channel domain.Channel) (*domain.Ticket, error)
	// FindLatestWithinWindow is FindLatest restricted to tickets updated at or
	// after the given instant.
	FindLatestWithinWindow(ctx context.Context, contactID, channelNumberID int64, channel domain.Channel, since time.Time) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (uuid, status, unread_messages, last_message, is_group, is_bot, channel, contact_id, channel_number_id, user_id, queue_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.UUID,
		ticket.Status,
		ticket.UnreadMessages,
		ticket.LastMessage,
		ticket.IsGroup,
		ticket.IsBot,
		ticket.Channel,
		ticket.ContactID,
		ticket.ChannelNumberID,
		ticket.UserID,
		ticket.QueueID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, unread_messages=$2, last_message=$3, is_bot=$4,
            channel=$5, user_id=$6, queue_id=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.UnreadMessages,
		ticket.LastMessage,
		ticket.IsBot,
		ticket.Channel,
		ticket.UserID,
		ticket.QueueID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDEager(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	const contactQuery = `
        SELECT id, name, number, profile_pic_url, is_group, created_at, updated_at
        FROM contacts WHERE id=$1`
	var contact domain.Contact
	if err := r.pool.QueryRow(ctx, contactQuery, ticket.ContactID).Scan(
		&contact.ID, &contact.Name, &contact.Number, &contact.ProfilePicURL,
		&contact.IsGroup, &contact.CreatedAt, &contact.UpdatedAt,
	); err == nil {
		ticket.Contact = &contact
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if ticket.QueueID != nil {
		const queueQuery = `
            SELECT id, name, color, greeting_message, created_at, updated_at
            FROM queues WHERE id=$1`
		var queue domain.Queue
		if err := r.pool.QueryRow(ctx, queueQuery, *ticket.QueueID).Scan(
			&queue.ID, &queue.Name, &queue.Color, &queue.GreetingMessage,
			&queue.CreatedAt, &queue.UpdatedAt,
		); err == nil {
			ticket.Queue = &queue
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	const channelQuery = `
        SELECT id, name, channel, status, is_default, greeting_message, farewell_message,
               out_of_work_message, time_new_ticket, reopen_last_ticket, created_at, updated_at
        FROM channel_numbers WHERE id=$1`
	var cn domain.ChannelNumber
	if err := r.pool.QueryRow(ctx, channelQuery, ticket.ChannelNumberID).Scan(
		&cn.ID, &cn.Name, &cn.Channel, &cn.Status, &cn.IsDefault, &cn.GreetingMessage,
		&cn.FarewellMessage, &cn.OutOfWorkMessage, &cn.TimeNewTicket, &cn.ReopenLastTicket,
		&cn.CreatedAt, &cn.UpdatedAt,
	); err == nil {
		ticket.ChannelNumber = &cn
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	const tagsQuery = `
        SELECT t.id, t.name, t.color
        FROM tags t
        JOIN ticket_tags tt ON tt.tag_id = t.id
        WHERE tt.ticket_id=$1
        ORDER BY t.id`
	rows, err := r.pool.Query(ctx, tagsQuery, ticket.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color); err != nil {
			return nil, err
		}
		ticket.Tags = append(ticket.Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ticket, nil
}

func (r *ticketRepository) FindActive(ctx context.Context, contactID, channelNumberID int64, channel domain.Channel) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status IN ('open','pending') AND contact_id=$1 AND channel_number_id=$2 AND channel=$3
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, contactID, channelNumberID, channel)
}

func (r *ticketRepository) FindActiveByContact(ctx context.Context, contactID int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status IN ('open','pending') AND contact_id=$1
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, contactID)
}

func (r *ticketRepository) FindLatestByContact(ctx context.Context, contactID int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE contact_id=$1
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, contactID)
}

func (r *ticketRepository) FindLatest(ctx context.Context, contactID, channelNumberID int64, channel domain.Channel) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE contact_id=$1 AND channel_number_id=$2 AND channel=$3
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, contactID, channelNumberID, channel)
}

func (r *ticketRepository) FindLatestWithinWindow(ctx context.Context, contactID, channelNumberID int64, channel domain.Channel, since time.Time) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE contact_id=$1 AND channel_number_id=$2 AND channel=$3 AND updated_at >= $4
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, contactID, channelNumberID, channel, since)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.UUID,
		&ticket.Status,
		&ticket.UnreadMessages,
		&ticket.LastMessage,
		&ticket.IsGroup,
		&ticket.IsBot,
		&ticket.Channel,
		&ticket.ContactID,
		&ticket.ChannelNumberID,
		&ticket.UserID,
		&ticket.QueueID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
