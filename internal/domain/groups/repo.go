package groups

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Register вызывается, когда бота добавили в группу (или вернули).
func (r *Repo) Register(ctx context.Context, chatID int64, title string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO forward_groups (chat_id, title)
		VALUES ($1,$2)
		ON CONFLICT (chat_id) DO UPDATE SET
			title = EXCLUDED.title, active = TRUE`, chatID, title)
	return err
}

// Deactivate помечает группу неактивной (бота удалили из чата).
func (r *Repo) Deactivate(ctx context.Context, chatID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE forward_groups SET active = FALSE WHERE chat_id = $1`, chatID)
	return err
}

func (r *Repo) GetByChatID(ctx context.Context, chatID int64) (*Group, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, chat_id, title, active, added_at
		FROM forward_groups WHERE chat_id = $1`, chatID)
	var g Group
	if err := row.Scan(&g.ID, &g.ChatID, &g.Title, &g.Active, &g.AddedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *Repo) ListActive(ctx context.Context) ([]Group, error) {
	return r.list(ctx, `
		SELECT id, chat_id, title, active, added_at
		FROM forward_groups WHERE active
		ORDER BY title, id`)
}

// List отдаёт весь реестр, включая группы, откуда бота убрали.
func (r *Repo) List(ctx context.Context) ([]Group, error) {
	return r.list(ctx, `
		SELECT id, chat_id, title, active, added_at
		FROM forward_groups
		ORDER BY active DESC, title, id`)
}

func (r *Repo) list(ctx context.Context, query string) ([]Group, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.ChatID, &g.Title, &g.Active, &g.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
