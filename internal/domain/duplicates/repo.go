package duplicates

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, rep Report) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO duplicate_reports
			(phone, bank_id, bank_name, existing_form_id, existing_manager_id, attempted_manager_id)
		VALUES ($1, NULLIF($2,0), $3, $4, $5, $6)`,
		rep.Phone, rep.BankID, rep.BankName,
		rep.ExistingFormID, rep.ExistingManagerID, rep.AttemptedManagerID)
	return err
}

func (r *Repo) ListByPeriod(ctx context.Context, from, to time.Time) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, phone, COALESCE(bank_id,0), bank_name,
		       existing_form_id, existing_manager_id, attempted_manager_id, created_at
		FROM duplicate_reports
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.Phone, &rep.BankID, &rep.BankName,
			&rep.ExistingFormID, &rep.ExistingManagerID, &rep.AttemptedManagerID,
			&rep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
