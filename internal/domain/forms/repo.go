package forms

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

var (
	ErrNotReady   = errors.New("анкета заполнена не полностью")
	ErrNotPending = errors.New("анкета уже рассмотрена")
	ErrNotPayable = errors.New("по анкете нельзя зафиксировать выплату")
	ErrDuplicate  = errors.New("такая пара телефон+банк уже есть")
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const formColumns = `
	id, manager_id, source, COALESCE(traffic_type,''),
	forward_primary, forward_secondary,
	COALESCE(phone,''), COALESCE(bank_id,0), COALESCE(bank_name,''),
	COALESCE(password,''), screenshots, COALESCE(comment,''),
	status, COALESCE(team_lead_comment,''),
	payments, payment_done_at, submitted_at, reviewed_at,
	COALESCE(reviewer_id,0), created_at, updated_at`

func scanForm(row pgx.Row) (*Form, error) {
	var (
		f                Form
		fwdP, fwdS, pays []byte
		screens          []byte
	)
	err := row.Scan(&f.ID, &f.ManagerID, &f.Source, &f.TrafficType,
		&fwdP, &fwdS,
		&f.Phone, &f.BankID, &f.BankName,
		&f.Password, &screens, &f.Comment,
		&f.Status, &f.TeamLeadComment,
		&pays, &f.PaymentDoneAt, &f.SubmittedAt, &f.ReviewedAt,
		&f.ReviewerID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(fwdP) > 0 {
		f.ForwardPrimary = &ForwardContact{}
		_ = json.Unmarshal(fwdP, f.ForwardPrimary)
	}
	if len(fwdS) > 0 {
		f.ForwardSecondary = &ForwardContact{}
		_ = json.Unmarshal(fwdS, f.ForwardSecondary)
	}
	if len(pays) > 0 {
		f.Payments = &PaymentInfo{}
		_ = json.Unmarshal(pays, f.Payments)
	}
	_ = json.Unmarshal(screens, &f.Screenshots)
	return &f, nil
}

func (r *Repo) Create(ctx context.Context, managerID int64, source users.Source) (*Form, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO forms (manager_id, source)
		VALUES ($1,$2)
		RETURNING`+formColumns, managerID, string(source))
	return scanForm(row)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Form, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+formColumns+` FROM forms WHERE id = $1`, id)
	return scanForm(row)
}

// GetDraft — незавершённая анкета менеджера (черновик ведём один).
func (r *Repo) GetDraft(ctx context.Context, managerID int64) (*Form, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+formColumns+` FROM forms
		WHERE manager_id = $1 AND status = 'in_progress'
		ORDER BY id DESC LIMIT 1`, managerID)
	return scanForm(row)
}

func (r *Repo) SetTraffic(ctx context.Context, id int64, t Traffic) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE forms SET traffic_type = $2, updated_at = now() WHERE id = $1`, id, string(t))
	return err
}

func (r *Repo) SetForwardPrimary(ctx context.Context, id int64, c *ForwardContact) error {
	raw, _ := json.Marshal(c)
	_, err := r.pool.Exec(ctx,
		`UPDATE forms SET forward_primary = $2, updated_at = now() WHERE id = $1`, id, raw)
	return err
}

func (r *Repo) SetForwardSecondary(ctx context.Context, id int64, c *ForwardContact) error {
	raw, _ := json.Marshal(c)
	_, err := r.pool.Exec(ctx,
		`UPDATE forms SET forward_secondary = $2, updated_at = now() WHERE id = $1`, id, raw)
	return err
}

func (r *Repo) SetPhone(ctx context.Context, id int64, phone string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE forms SET phone = $2, updated_at = now() WHERE id = $1`, id, phone)
	return err
}

// SetBank пишет и id, и копию названия. Частичный уникальный индекс по
// (phone, bank_id) страхует от гонки двух менеджеров на одном дубле.
func (r *Repo) SetBank(ctx context.Context, id int64, bankID int64, bankName string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE forms SET bank_id = $2, bank_name = $3, updated_at = now() WHERE id = $1`,
		id, bankID, bankName)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *Repo) SetPassword(ctx context.Context, id int64, password string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE forms SET password = $2, updated_at = now() WHERE id = $1`, id, password)
	return err
}

func (r *Repo) SetScreenshots(ctx context.Context, id int64, refs []string) error {
	raw, _ := json.Marshal(refs)
	_, err := r.pool.Exec(ctx,
		`UPDATE forms SET screenshots = $2, updated_at = now() WHERE id = $1`, id, raw)
	return err
}

func (r *Repo) SetComment(ctx context.Context, id int64, comment string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE forms SET comment = $2, updated_at = now() WHERE id = $1`, id, comment)
	return err
}

// Submit переводит анкету на проверку. Комментарий тимлида от прошлого
// отклонения сбрасывается. Подтверждённую не трогаем, пустую — тоже.
func (r *Repo) Submit(ctx context.Context, id int64) (*Form, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE forms SET
			status = 'pending',
			team_lead_comment = NULL,
			submitted_at = COALESCE(submitted_at, now()),
			updated_at = now()
		WHERE id = $1
		  AND status <> 'approved'
		  AND phone IS NOT NULL
		  AND (bank_id IS NOT NULL OR bank_name IS NOT NULL)
		  AND password IS NOT NULL
		  AND jsonb_array_length(screenshots) > 0
		RETURNING`+formColumns, id)
	f, err := scanForm(row)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotReady
	}
	return f, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM forms WHERE id = $1`, id)
	return err
}

type Conflict struct {
	FormID     int64
	ManagerID  int64
	ManagerTag string
	BankID     int64
	BankName   string
}

// FindConflict ищет анкету с тем же телефоном и тем же банком.
// Банки сверяются по id, для строк без id — по ключу названия.
func (r *Repo) FindConflict(ctx context.Context, phone string, bankID int64, bankName string, excludeID int64) (*Conflict, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.manager_id, COALESCE(f.bank_id,0), COALESCE(f.bank_name,''),
		       COALESCE(u.manager_tag,''), COALESCE(u.username,''), u.full_name
		FROM forms f
		JOIN users u ON u.id = f.manager_id
		WHERE f.phone = $1 AND f.id <> $2
		ORDER BY f.id`, phone, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c Conflict
		var tag, username, fullName string
		if err := rows.Scan(&c.FormID, &c.ManagerID, &c.BankID, &c.BankName,
			&tag, &username, &fullName); err != nil {
			return nil, err
		}
		if !SameBank(bankID, bankName, c.BankID, c.BankName) {
			continue
		}
		owner := users.User{ManagerTag: tag, Username: username, FullName: fullName}
		c.ManagerTag = owner.Tag()
		return &c, nil
	}
	return nil, rows.Err()
}

type PhoneMatch struct {
	FormID     int64
	ManagerTag string
	BankName   string
}

// PhoneMatches — мягкое предупреждение после ввода телефона: у кого этот
// номер уже встречался (банк может отличаться).
func (r *Repo) PhoneMatches(ctx context.Context, phone string, excludeID int64) ([]PhoneMatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, COALESCE(f.bank_name,''),
		       COALESCE(u.manager_tag,''), COALESCE(u.username,''), u.full_name
		FROM forms f
		JOIN users u ON u.id = f.manager_id
		WHERE f.phone = $1 AND f.id <> $2
		ORDER BY f.id`, phone, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PhoneMatch
	for rows.Next() {
		var m PhoneMatch
		var tag, username, fullName string
		if err := rows.Scan(&m.FormID, &m.BankName, &tag, &username, &fullName); err != nil {
			return nil, err
		}
		owner := users.User{ManagerTag: tag, Username: username, FullName: fullName}
		m.ManagerTag = owner.Tag()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) ListPendingBySource(ctx context.Context, source users.Source) ([]Form, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+formColumns+` FROM forms
		WHERE status = 'pending' AND source = $1
		ORDER BY submitted_at NULLS LAST, id`, string(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectForms(rows)
}

func (r *Repo) Approve(ctx context.Context, id, reviewerID int64) (*Form, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE forms SET
			status = 'approved', reviewer_id = $2, reviewed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING`+formColumns, id, reviewerID)
	f, err := scanForm(row)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotPending
	}
	return f, nil
}

func (r *Repo) Reject(ctx context.Context, id, reviewerID int64, comment string) (*Form, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE forms SET
			status = 'rejected', team_lead_comment = $3,
			reviewer_id = $2, reviewed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING`+formColumns, id, reviewerID, comment)
	f, err := scanForm(row)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotPending
	}
	return f, nil
}

func (r *Repo) ListByManager(ctx context.Context, managerID int64, from, to time.Time) ([]Form, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+formColumns+` FROM forms
		WHERE manager_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY id DESC`, managerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectForms(rows)
}

func (r *Repo) ListApprovedUnpaid(ctx context.Context, managerID int64) ([]Form, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+formColumns+` FROM forms
		WHERE manager_id = $1 AND status = 'approved' AND payment_done_at IS NULL
		ORDER BY id`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectForms(rows)
}

// SavePayments фиксирует выплату. Повторно и мимо статуса approved — нельзя.
func (r *Repo) SavePayments(ctx context.Context, id int64, info *PaymentInfo) (*Form, error) {
	raw, _ := json.Marshal(info)
	row := r.pool.QueryRow(ctx, `
		UPDATE forms SET
			payments = $2, payment_done_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'approved' AND payment_done_at IS NULL
		RETURNING`+formColumns, id, raw)
	f, err := scanForm(row)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotPayable
	}
	return f, nil
}

// TrafficCounts — количество анкет менеджера за окно, с разбивкой по
// трафику. Анкеты без типа считаются прямыми.
func (r *Repo) TrafficCounts(ctx context.Context, managerID int64, from, to time.Time) (direct, referral, total int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE traffic_type = 'referral')
		FROM forms
		WHERE manager_id = $1 AND created_at >= $2 AND created_at < $3`,
		managerID, from, to).Scan(&total, &referral)
	direct = total - referral
	return direct, referral, total, err
}

func (r *Repo) SourceTrafficCounts(ctx context.Context, source users.Source, from, to time.Time) (direct, referral, total int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE traffic_type = 'referral')
		FROM forms
		WHERE source = $1 AND created_at >= $2 AND created_at < $3`,
		string(source), from, to).Scan(&total, &referral)
	direct = total - referral
	return direct, referral, total, err
}

type ManagerStat struct {
	ManagerID int64
	Tag       string
	Total     int
	Pending   int
	Approved  int
	Rejected  int
}

// Efficiency — доля подтверждённых, в процентах.
func (s ManagerStat) Efficiency() int {
	if s.Total == 0 {
		return 0
	}
	return s.Approved * 100 / s.Total
}

// ManagerStats — сводка по менеджерам за период; пустой source — все команды.
func (r *Repo) ManagerStats(ctx context.Context, source users.Source, from, to time.Time) ([]ManagerStat, error) {
	q := `
		SELECT u.id, COALESCE(u.manager_tag,''), COALESCE(u.username,''), u.full_name,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE f.status = 'pending'),
		       COUNT(*) FILTER (WHERE f.status = 'approved'),
		       COUNT(*) FILTER (WHERE f.status = 'rejected')
		FROM forms f
		JOIN users u ON u.id = f.manager_id
		WHERE f.created_at >= $1 AND f.created_at < $2`
	args := []any{from, to}
	if source != "" {
		q += ` AND f.source = $3`
		args = append(args, string(source))
	}
	q += `
		GROUP BY u.id, u.manager_tag, u.username, u.full_name
		ORDER BY COUNT(*) DESC, u.id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ManagerStat
	for rows.Next() {
		var s ManagerStat
		var tag, username, fullName string
		if err := rows.Scan(&s.ManagerID, &tag, &username, &fullName,
			&s.Total, &s.Pending, &s.Approved, &s.Rejected); err != nil {
			return nil, err
		}
		owner := users.User{ManagerTag: tag, Username: username, FullName: fullName}
		s.Tag = owner.Tag()
		out = append(out, s)
	}
	return out, rows.Err()
}

func collectForms(rows pgx.Rows) ([]Form, error) {
	var out []Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
