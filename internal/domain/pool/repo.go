package pool

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAlreadyAssigned  = errors.New("ресурс уже разобран")
	ErrCapacityExceeded = errors.New("лимит активных ресурсов исчерпан")
	ErrNotOwner         = errors.New("ресурс не закреплён за вами")
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const itemColumns = `
	p.id, p.item_type, p.bank_id, COALESCE(b.name,''), p.data, p.screenshots,
	p.status, p.created_by, COALESCE(p.assigned_to,0), p.assigned_at,
	COALESCE(p.used_with_form_id,0), COALESCE(p.invalid_comment,''),
	p.created_at, p.updated_at`

const itemFrom = ` FROM pool_items p LEFT JOIN banks b ON b.id = p.bank_id `

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	var screens []byte
	err := row.Scan(&it.ID, &it.Type, &it.BankID, &it.BankName, &it.Data, &screens,
		&it.Status, &it.CreatedBy, &it.AssignedTo, &it.AssignedAt,
		&it.UsedWithFormID, &it.InvalidComment,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	_ = json.Unmarshal(screens, &it.Screenshots)
	return &it, nil
}

func (r *Repo) Add(ctx context.Context, typ ItemType, bankID int64, data string, screens []string, createdBy int64) (*Item, error) {
	raw, _ := json.Marshal(screens)
	if screens == nil {
		raw = []byte(`[]`)
	}
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO pool_items (item_type, bank_id, data, screenshots, created_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`, string(typ), bankID, data, raw, createdBy).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+itemColumns+itemFrom+`WHERE p.id = $1`, id)
	return scanItem(row)
}

// ListFree — свободные ресурсы банка в порядке добавления. Пустой тип —
// любые.
func (r *Repo) ListFree(ctx context.Context, bankID int64, typ ItemType) ([]Item, error) {
	q := `SELECT` + itemColumns + itemFrom + `WHERE p.status = 'free' AND p.bank_id = $1`
	args := []any{bankID}
	if typ != "" {
		q += ` AND p.item_type = $2`
		args = append(args, string(typ))
	}
	q += ` ORDER BY p.id`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// Assign закрепляет свободный ресурс за менеджером. Условный UPDATE решает
// гонку двух менеджеров: проигравший получает ErrAlreadyAssigned.
func (r *Repo) Assign(ctx context.Context, itemID, managerID int64) (*Item, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var active int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM pool_items
		WHERE assigned_to = $1 AND status = 'assigned'`, managerID).Scan(&active); err != nil {
		return nil, err
	}
	if active >= MaxActivePerManager {
		return nil, ErrCapacityExceeded
	}

	ct, err := tx.Exec(ctx, `
		UPDATE pool_items SET
			status = 'assigned', assigned_to = $2, assigned_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'free'`, itemID, managerID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrAlreadyAssigned
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Get(ctx, itemID)
}

func (r *Repo) ListAssigned(ctx context.Context, managerID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+itemColumns+itemFrom+`
		WHERE p.assigned_to = $1 AND p.status = 'assigned'
		ORDER BY p.assigned_at`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// Release возвращает ресурс в пул. Чужой или уже отпущенный — ErrNotOwner.
func (r *Repo) Release(ctx context.Context, itemID, managerID int64) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE pool_items SET
			status = 'free', assigned_to = NULL, assigned_at = NULL, updated_at = now()
		WHERE id = $1 AND assigned_to = $2 AND status = 'assigned'`, itemID, managerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotOwner
	}
	return nil
}

// MarkInvalid снимает ресурс с менеджера с пометкой для автора.
func (r *Repo) MarkInvalid(ctx context.Context, itemID, managerID int64, comment string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE pool_items SET
			status = 'invalid', invalid_comment = $3,
			assigned_to = NULL, assigned_at = NULL, updated_at = now()
		WHERE id = $1 AND assigned_to = $2 AND status = 'assigned'`, itemID, managerID, comment)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotOwner
	}
	return nil
}

// MarkUsed — терминальный статус; formID == 0 — ресурс сожжён без анкеты.
func (r *Repo) MarkUsed(ctx context.Context, itemID, managerID, formID int64) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE pool_items SET
			status = 'used', used_with_form_id = NULLIF($3,0), updated_at = now()
		WHERE id = $1 AND assigned_to = $2 AND status = 'assigned'`, itemID, managerID, formID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotOwner
	}
	return nil
}

// ListInvalidByCreator — невалиды видит и чинит только автор.
func (r *Repo) ListInvalidByCreator(ctx context.Context, creatorID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+itemColumns+itemFrom+`
		WHERE p.created_by = $1 AND p.status = 'invalid'
		ORDER BY p.updated_at`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// SaveFixed — исправленный невалид возвращается в пул, пометка снимается.
func (r *Repo) SaveFixed(ctx context.Context, itemID, creatorID int64, data string, screens []string) error {
	raw, _ := json.Marshal(screens)
	if screens == nil {
		raw = []byte(`[]`)
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE pool_items SET
			data = $3, screenshots = $4,
			status = 'free', invalid_comment = NULL, updated_at = now()
		WHERE id = $1 AND created_by = $2 AND status = 'invalid'`, itemID, creatorID, data, raw)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotOwner
	}
	return nil
}

func (r *Repo) StatsByBank(ctx context.Context) ([]StatRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(b.name,'—'), p.item_type, p.status, COUNT(*)
		FROM pool_items p
		LEFT JOIN banks b ON b.id = p.bank_id
		GROUP BY b.name, p.item_type, p.status
		ORDER BY b.name, p.item_type, p.status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatRow
	for rows.Next() {
		var s StatRow
		if err := rows.Scan(&s.BankName, &s.Type, &s.Status, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}
