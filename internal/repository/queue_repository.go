package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

// QueueRepository encapsulates queue and chatbot-flow persistence.
type QueueRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Queue, error)
	// ListByChannelNumber returns the queues attached to a channel number in
	// menu order, each with its first-level chatbot flows.
	ListByChannelNumber(ctx context.Context, channelNumberID int64) ([]domain.Queue, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) GetByID(ctx context.Context, id int64) (*domain.Queue, error) {
	const query = `
        SELECT id, name, color, greeting_message, created_at, updated_at
        FROM queues WHERE id=$1`
	var queue domain.Queue
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&queue.ID, &queue.Name, &queue.Color, &queue.GreetingMessage,
		&queue.CreatedAt, &queue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	chatbots, err := r.listChatbots(ctx, queue.ID)
	if err != nil {
		return nil, err
	}
	queue.Chatbots = chatbots
	return &queue, nil
}

func (r *queueRepository) ListByChannelNumber(ctx context.Context, channelNumberID int64) ([]domain.Queue, error) {
	const query = `
        SELECT q.id, q.name, q.color, q.greeting_message, q.created_at, q.updated_at
        FROM queues q
        JOIN channel_number_queues cnq ON cnq.queue_id = q.id
        WHERE cnq.channel_number_id=$1
        ORDER BY q.id`
	rows, err := r.pool.Query(ctx, query, channelNumberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queues []domain.Queue
	for rows.Next() {
		var queue domain.Queue
		if err := rows.Scan(
			&queue.ID, &queue.Name, &queue.Color, &queue.GreetingMessage,
			&queue.CreatedAt, &queue.UpdatedAt,
		); err != nil {
			return nil, err
		}
		queues = append(queues, queue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range queues {
		chatbots, err := r.listChatbots(ctx, queues[i].ID)
		if err != nil {
			return nil, err
		}
		queues[i].Chatbots = chatbots
	}
	return queues, nil
}

func (r *queueRepository) listChatbots(ctx context.Context, queueID int64) ([]domain.Chatbot, error) {
	const query = `
        SELECT id, name, greeting_message, queue_id, parent_id
        FROM chatbots
        WHERE queue_id=$1 AND parent_id IS NULL
        ORDER BY id`
	rows, err := r.pool.Query(ctx, query, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChatbots(rows)
}

func scanChatbots(rows pgx.Rows) ([]domain.Chatbot, error) {
	var result []domain.Chatbot
	for rows.Next() {
		var bot domain.Chatbot
		if err := rows.Scan(&bot.ID, &bot.Name, &bot.GreetingMessage, &bot.QueueID, &bot.ParentID); err != nil {
			return nil, err
		}
		result = append(result, bot)
	}
	return result, rows.Err()
}
