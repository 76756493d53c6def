package shifts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

var (
	ErrAlreadyOpen = errors.New("смена уже открыта")
	ErrNotOpen     = errors.New("открытой смены нет")
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const shiftColumns = `
	id, user_id, source, started_at, ended_at,
	COALESCE(dialogs_count,0), COALESCE(comment,'')`

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	err := row.Scan(&s.ID, &s.UserID, &s.Source, &s.StartedAt, &s.EndedAt,
		&s.DialogsCount, &s.Comment)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Start открывает смену. Вторую открытую не даст завести частичный
// уникальный индекс.
func (r *Repo) Start(ctx context.Context, userID int64, source users.Source) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO shifts (user_id, source)
		VALUES ($1,$2)
		RETURNING`+shiftColumns, userID, string(source))
	s, err := scanShift(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyOpen
		}
		return nil, err
	}
	return s, nil
}

func (r *Repo) GetOpen(ctx context.Context, userID int64) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+shiftColumns+` FROM shifts
		WHERE user_id = $1 AND ended_at IS NULL`, userID)
	return scanShift(row)
}

func (r *Repo) Close(ctx context.Context, id int64, dialogs int, comment string) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE shifts SET
			ended_at = now(), dialogs_count = $2, comment = NULLIF($3,'')
		WHERE id = $1 AND ended_at IS NULL
		RETURNING`+shiftColumns, id, dialogs, comment)
	s, err := scanShift(row)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotOpen
	}
	return s, nil
}

// CountOpenBySource — сколько смен источника ещё не закрыто.
func (r *Repo) CountOpenBySource(ctx context.Context, source users.Source) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM shifts
		WHERE source = $1 AND ended_at IS NULL`, string(source)).Scan(&n)
	return n, err
}
