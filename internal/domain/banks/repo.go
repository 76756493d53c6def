package banks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

var ErrExists = errors.New("банк с таким названием уже есть")

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const bankColumns = `
	id, name,
	COALESCE(instruction_tg,''), COALESCE(instruction_fb,''),
	COALESCE(required_screens_tg,0), COALESCE(required_screens_fb,0),
	created_at`

func scanBank(row pgx.Row) (*Bank, error) {
	var b Bank
	err := row.Scan(&b.ID, &b.Name, &b.InstructionTG, &b.InstructionFB,
		&b.RequiredScreensTG, &b.RequiredScreensFB, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repo) List(ctx context.Context) ([]Bank, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+bankColumns+` FROM banks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (*Bank, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+bankColumns+` FROM banks WHERE id = $1`, id)
	return scanBank(row)
}

func (r *Repo) Create(ctx context.Context, name string) (*Bank, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO banks (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING`+bankColumns, name)
	b, err := scanBank(row)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrExists
	}
	return b, nil
}

// Rename меняет название и каскадно обновляет копии названия в анкетах
// и отчётах о дублях — одной транзакцией.
func (r *Repo) Rename(ctx context.Context, id int64, newName string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var taken bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM banks WHERE name = $1 AND id <> $2)`,
		newName, id).Scan(&taken); err != nil {
		return err
	}
	if taken {
		return ErrExists
	}

	if _, err := tx.Exec(ctx, `UPDATE banks SET name = $2 WHERE id = $1`, id, newName); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE forms SET bank_name = $2 WHERE bank_id = $1`, id, newName); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE duplicate_reports SET bank_name = $2 WHERE bank_id = $1`, id, newName); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete убирает банк из справочника; анкеты сохраняют текстовое название
// (bank_id обнуляется внешним ключом).
func (r *Repo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM banks WHERE id = $1`, id)
	return err
}

func (r *Repo) SetInstruction(ctx context.Context, id int64, src users.Source, text string) error {
	col := "instruction_tg"
	if src == users.SourceFB {
		col = "instruction_fb"
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE banks SET `+col+` = NULLIF($2,'') WHERE id = $1`, id, text)
	return err
}

func (r *Repo) SetRequiredScreens(ctx context.Context, id int64, src users.Source, n int) error {
	col := "required_screens_tg"
	if src == users.SourceFB {
		col = "required_screens_fb"
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE banks SET `+col+` = NULLIF($2,0) WHERE id = $1`, id, n)
	return err
}
