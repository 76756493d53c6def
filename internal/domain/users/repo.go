package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const userColumns = `
	id, tg_id, username, full_name,
	COALESCE(role,''), COALESCE(source,''), COALESCE(manager_tag,''),
	COALESCE(forward_group_id,0), COALESCE(last_message_id,0),
	created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TgID, &u.Username, &u.FullName,
		&u.Role, &u.Source, &u.ManagerTag,
		&u.ForwardGroupID, &u.LastMessageID,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE tg_id = $1`, tgID)
	return scanUser(row)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpsertFromTelegram обновляет профиль, не трогая роль и привязки.
func (r *Repo) UpsertFromTelegram(ctx context.Context, tg Telegram) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (tg_id, username, full_name)
		VALUES ($1,$2,$3)
		ON CONFLICT (tg_id)
		DO UPDATE SET
			username   = EXCLUDED.username,
			full_name  = EXCLUDED.full_name,
			updated_at = now()
		RETURNING`+userColumns, tg.ID, tg.Username, tg.FullName)
	return scanUser(row)
}

// Grant выдаёт роль после одобрения заявки. Источник и группа — по роли:
// у wictory обоих нет, у тимлида нет группы.
func (r *Repo) Grant(ctx context.Context, tgID int64, role Role, source Source, forwardGroupID int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			role = $2,
			source = NULLIF($3,''),
			forward_group_id = NULLIF($4,0),
			updated_at = now()
		WHERE tg_id = $1
		RETURNING`+userColumns, tgID, string(role), string(source), forwardGroupID)
	return scanUser(row)
}

func (r *Repo) SetManagerTag(ctx context.Context, id int64, tag string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET manager_tag = $2, updated_at = now() WHERE id = $1`, id, tag)
	return err
}

// ListTeamLeads — тимлиды источника, получатели уведомлений о заявках.
func (r *Repo) ListTeamLeads(ctx context.Context, source Source) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+userColumns+` FROM users
		WHERE role = 'team_lead' AND source = $1
		ORDER BY id`, string(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *Repo) ListByRole(ctx context.Context, role Role) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+userColumns+` FROM users WHERE role = $1 ORDER BY id`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// TrackMessage запоминает верхний id сообщения в личке (для ночной чистки).
func (r *Repo) TrackMessage(ctx context.Context, tgID int64, messageID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET last_message_id = GREATEST(COALESCE(last_message_id,0), $2)
		WHERE tg_id = $1`, tgID, messageID)
	return err
}

// ListForCleanup — пользователи с ролью и накопленной историей в личке.
func (r *Repo) ListForCleanup(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+userColumns+` FROM users
		WHERE role IS NOT NULL AND last_message_id IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *Repo) ResetLastMessage(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_message_id = NULL WHERE id = $1`, id)
	return err
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
