package access

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const requestColumns = `
	id, tg_id, username, full_name, desired_role, status, is_new,
	created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var rq Request
	err := row.Scan(&rq.ID, &rq.TgID, &rq.Username, &rq.FullName,
		&rq.DesiredRole, &rq.Status, &rq.IsNew, &rq.CreatedAt, &rq.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rq, nil
}

// Upsert создаёт заявку либо переоткрывает существующую. Переоткрытая
// снова помечается новой — разработчик получит уведомление.
func (r *Repo) Upsert(ctx context.Context, tg users.Telegram, role users.Role) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO access_requests (tg_id, username, full_name, desired_role)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (tg_id) DO UPDATE SET
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			desired_role = EXCLUDED.desired_role,
			status = 'pending',
			is_new = TRUE,
			updated_at = now()
		RETURNING`+requestColumns, tg.ID, tg.Username, tg.FullName, string(role))
	return scanRequest(row)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+requestColumns+` FROM access_requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+requestColumns+` FROM access_requests WHERE tg_id = $1`, tgID)
	return scanRequest(row)
}

func (r *Repo) ListPending(ctx context.Context) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+requestColumns+` FROM access_requests
		WHERE status = 'pending'
		ORDER BY updated_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		rq, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rq)
	}
	return out, rows.Err()
}

// MarkSeen снимает флаг новизны после показа разработчику.
func (r *Repo) MarkSeen(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE access_requests SET is_new = FALSE, updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *Repo) SetStatus(ctx context.Context, id int64, st Status) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE access_requests SET status = $2, is_new = FALSE, updated_at = now() WHERE id = $1`,
		id, string(st))
	return err
}
