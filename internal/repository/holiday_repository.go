package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// HolidayRepository stores the public-holiday calendar.
type HolidayRepository interface {
	List(ctx context.Context) ([]domain.Holiday, error)
	// Upsert stores holiday, replacing the name of an existing date.
	Upsert(ctx context.Context, holiday *domain.Holiday) error
	Delete(ctx context.Context, date time.Time) error
}

type holidayRepository struct {
	pool *pgxpool.Pool
}

// NewHolidayRepository builds repository.
func NewHolidayRepository(pool *pgxpool.Pool) HolidayRepository {
	return &holidayRepository{pool: pool}
}

func (r *holidayRepository) List(ctx context.Context) ([]domain.Holiday, error) {
	const query = `SELECT holiday_date, name, created_at FROM holidays ORDER BY holiday_date`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Holiday
	for rows.Next() {
		var holiday domain.Holiday
		if err := rows.Scan(&holiday.Date, &holiday.Name, &holiday.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, holiday)
	}
	return result, rows.Err()
}

func (r *holidayRepository) Upsert(ctx context.Context, holiday *domain.Holiday) error {
	const query = `
        INSERT INTO holidays (holiday_date, name) VALUES ($1::date, $2)
        ON CONFLICT (holiday_date) DO UPDATE SET name = EXCLUDED.name
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query, domain.DateKey(holiday.Date), holiday.Name).Scan(&holiday.CreatedAt)
}

func (r *holidayRepository) Delete(ctx context.Context, date time.Time) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM holidays WHERE holiday_date=$1::date`, domain.DateKey(date))
	return err
}

type cachedHolidayRepository struct {
	inner  HolidayRepository
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedHolidayRepository caches List results in Redis and drops the cache on
// writes. A nil client disables caching.
func NewCachedHolidayRepository(inner HolidayRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) HolidayRepository {
	if client == nil {
		return inner
	}
	return &cachedHolidayRepository{
		inner:  inner,
		client: client,
		key:    "servicedesk:holidays",
		ttl:    ttl,
		logger: logger,
	}
}

type cachedHoliday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

func (r *cachedHolidayRepository) List(ctx context.Context) ([]domain.Holiday, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	switch {
	case err == nil:
		var cached []cachedHoliday
		if err := json.Unmarshal(raw, &cached); err == nil {
			result := make([]domain.Holiday, 0, len(cached))
			for _, item := range cached {
				date, err := time.Parse(time.DateOnly, item.Date)
				if err != nil {
					continue
				}
				result = append(result, domain.Holiday{Date: date, Name: item.Name})
			}
			return result, nil
		}
		r.logger.Warn("discarding malformed holiday cache")
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("holiday cache read failed", zap.Error(err))
	}

	holidays, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}

	cached := make([]cachedHoliday, 0, len(holidays))
	for _, holiday := range holidays {
		cached = append(cached, cachedHoliday{Date: domain.DateKey(holiday.Date), Name: holiday.Name})
	}
	if payload, err := json.Marshal(cached); err == nil {
		if err := r.client.Set(ctx, r.key, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("holiday cache write failed", zap.Error(err))
		}
	}
	return holidays, nil
}

func (r *cachedHolidayRepository) Upsert(ctx context.Context, holiday *domain.Holiday) error {
	if err := r.inner.Upsert(ctx, holiday); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedHolidayRepository) Delete(ctx context.Context, date time.Time) error {
	if err := r.inner.Delete(ctx, date); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedHolidayRepository) invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		r.logger.Warn("holiday cache invalidation failed", zap.Error(err))
	}
}
