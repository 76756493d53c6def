package forms

import (
	"strings"
	"time"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

func StatusTitle(s Status) string {
	switch s {
	case StatusInProgress:
		return "📝 Заполняется"
	case StatusPending:
		return "🕓 На проверке"
	case StatusApproved:
		return "✅ Подтверждена"
	case StatusRejected:
		return "❌ Отклонена"
	}
	return string(s)
}

type Traffic string

const (
	TrafficDirect   Traffic = "direct"
	TrafficReferral Traffic = "referral"
)

func TrafficTitle(t Traffic) string {
	switch t {
	case TrafficDirect:
		return "Прямой"
	case TrafficReferral:
		return "Реферал"
	}
	return "Прямой" // пустой трафик считаем прямым
}

// ForwardContact — данные клиента, снятые с пересланного сообщения либо
// введённые вручную.
type ForwardContact struct {
	Username    string `json:"username,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PlatformID  int64  `json:"platform_id,omitempty"`
}

// MissingFields — какие поля контакта нужно дособрать у менеджера.
// PlatformID не спрашиваем: руками его не вводят.
func (c *ForwardContact) MissingFields() []string {
	var out []string
	if c.Username == "" {
		out = append(out, "username")
	}
	if c.Phone == "" {
		out = append(out, "phone")
	}
	if c.DisplayName == "" {
		out = append(out, "name")
	}
	return out
}

func (c *ForwardContact) Label() string {
	switch {
	case c.Username != "":
		return "@" + strings.TrimPrefix(c.Username, "@")
	case c.DisplayName != "":
		return c.DisplayName
	case c.Phone != "":
		return c.Phone
	}
	return "—"
}

type PaymentPair struct {
	Card   string `json:"card"`
	Amount string `json:"amount"`
}

type ReferralBonus struct {
	Phone  string `json:"phone"`
	Card   string `json:"card"`
	Amount string `json:"amount"`
}

type PaymentInfo struct {
	Pairs    []PaymentPair  `json:"pairs"`
	Referral *ReferralBonus `json:"referral,omitempty"`
}

type Form struct {
	ID               int64
	ManagerID        int64
	Source           users.Source
	TrafficType      Traffic // пустая — tg-анкета либо шаг ещё не пройден
	ForwardPrimary   *ForwardContact
	ForwardSecondary *ForwardContact
	Phone            string
	BankID           int64
	BankName         string
	Password         string
	Screenshots      []string // «kind:file_id», kind ∈ photo|doc|video
	Comment          string
	Status           Status
	TeamLeadComment  string
	Payments         *PaymentInfo
	PaymentDoneAt    *time.Time
	SubmittedAt      *time.Time
	ReviewedAt       *time.Time
	ReviewerID       int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Step — шаг мастера заполнения.
type Step string

const (
	StepTraffic          Step = "traffic"
	StepForwardPrimary   Step = "forward_primary"
	StepForwardSecondary Step = "forward_secondary"
	StepPhone            Step = "phone"
	StepBank             Step = "bank"
	StepPassword         Step = "password"
	StepScreens          Step = "screens"
	StepComment          Step = "comment"
	StepConfirm          Step = "confirm"
)

// NextStep возвращает первый незаполненный шаг анкеты. Для tg-источника
// трафик и пересылки пропускаются целиком. requiredScreens — требование
// банка для источника анкеты (0 — свободный режим, достаточно одного).
func NextStep(f *Form, requiredScreens int) Step {
	if f.Source == users.SourceFB {
		if f.TrafficType == "" {
			return StepTraffic
		}
		if f.ForwardPrimary == nil {
			return StepForwardPrimary
		}
		if f.TrafficType == TrafficReferral && f.ForwardSecondary == nil {
			return StepForwardSecondary
		}
	}
	if f.Phone == "" {
		return StepPhone
	}
	if f.BankID == 0 && f.BankName == "" {
		return StepBank
	}
	if f.Password == "" {
		return StepPassword
	}
	if len(f.Screenshots) == 0 || (requiredScreens > 0 && len(f.Screenshots) < requiredScreens) {
		return StepScreens
	}
	if f.Comment == "" {
		return StepComment
	}
	return StepConfirm
}

// CanEdit — анкету можно редактировать, пока она не подтверждена.
func CanEdit(f *Form) bool {
	return f.Status != StatusApproved
}

// CanResubmit — повторная отправка допустима для отклонённых и уже
// отправленных анкет (правки до решения тимлида).
func CanResubmit(f *Form) bool {
	return f.Status == StatusRejected || f.Status == StatusPending
}

// CanCapturePayment — выплату фиксируем один раз и только по подтверждённой.
func CanCapturePayment(f *Form) bool {
	return f.Status == StatusApproved && f.PaymentDoneAt == nil
}

const (
	MediaPhoto = "photo"
	MediaDoc   = "doc"
	MediaVideo = "video"
)

// PackMedia упаковывает вложение в строку «kind:file_id».
func PackMedia(kind, fileID string) string {
	return kind + ":" + fileID
}

// UnpackMedia разбирает строку «kind:file_id»; старые записи без префикса
// считаются фото.
func UnpackMedia(ref string) (kind, fileID string) {
	if i := strings.Index(ref, ":"); i > 0 {
		k := ref[:i]
		if k == MediaPhoto || k == MediaDoc || k == MediaVideo {
			return k, ref[i+1:]
		}
	}
	return MediaPhoto, ref
}
