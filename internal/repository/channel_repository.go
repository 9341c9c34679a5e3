package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

// ChannelRepository is the read accessor for channel-number configuration.
// The inbound pipeline never writes through it.
type ChannelRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.ChannelNumber, error)
	GetDefault(ctx context.Context, channel domain.Channel) (*domain.ChannelNumber, error)
}

type channelRepository struct {
	pool   *pgxpool.Pool
	queues QueueRepository
}

// NewChannelRepository instantiates repository.
func NewChannelRepository(pool *pgxpool.Pool, queues QueueRepository) ChannelRepository {
	return &channelRepository{pool: pool, queues: queues}
}

const channelNumberColumns = `id, name, channel, status, is_default, greeting_message, farewell_message,
               out_of_work_message, time_new_ticket, reopen_last_ticket,
               define_work_hours, start_work_hour, end_work_hour, start_work_hour_weekend, end_work_hour_weekend,
               sunday, monday, tuesday, wednesday, thursday, friday, saturday,
               created_at, updated_at`

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*domain.ChannelNumber, error) {
	query := `SELECT ` + channelNumberColumns + ` FROM channel_numbers WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *channelRepository) GetDefault(ctx context.Context, channel domain.Channel) (*domain.ChannelNumber, error) {
	query := `SELECT ` + channelNumberColumns + ` FROM channel_numbers WHERE channel=$1 AND is_default=true LIMIT 1`
	return r.fetchSingle(ctx, query, channel)
}

func (r *channelRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ChannelNumber, error) {
	var cn domain.ChannelNumber
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&cn.ID,
		&cn.Name,
		&cn.Channel,
		&cn.Status,
		&cn.IsDefault,
		&cn.GreetingMessage,
		&cn.FarewellMessage,
		&cn.OutOfWorkMessage,
		&cn.TimeNewTicket,
		&cn.ReopenLastTicket,
		&cn.Schedule.Enabled,
		&cn.Schedule.StartHour,
		&cn.Schedule.EndHour,
		&cn.Schedule.WeekendStart,
		&cn.Schedule.WeekendEnd,
		&cn.Schedule.Days[0],
		&cn.Schedule.Days[1],
		&cn.Schedule.Days[2],
		&cn.Schedule.Days[3],
		&cn.Schedule.Days[4],
		&cn.Schedule.Days[5],
		&cn.Schedule.Days[6],
		&cn.CreatedAt,
		&cn.UpdatedAt,
	); err != nil {
		return nil, err
	}

	queues, err := r.queues.ListByChannelNumber(ctx, cn.ID)
	if err != nil {
		return nil, err
	}
	cn.Queues = queues
	return &cn, nil
}
