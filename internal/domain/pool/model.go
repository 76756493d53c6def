package pool

import "time"

type ItemType string

const (
	TypeLink     ItemType = "link"
	TypeESIM     ItemType = "esim"
	TypeLinkESIM ItemType = "link_esim"
)

func TypeTitle(t ItemType) string {
	switch t {
	case TypeLink:
		return "Ссылка"
	case TypeESIM:
		return "eSIM"
	case TypeLinkESIM:
		return "Ссылка + eSIM"
	}
	return string(t)
}

// NeedsScreens — для типов с eSIM при добавлении прикладываются скрины.
func (t ItemType) NeedsScreens() bool {
	return t == TypeESIM || t == TypeLinkESIM
}

type Status string

const (
	StatusFree     Status = "free"
	StatusAssigned Status = "assigned"
	StatusUsed     Status = "used"
	StatusInvalid  Status = "invalid"
)

func StatusTitle(s Status) string {
	switch s {
	case StatusFree:
		return "🟢 Свободен"
	case StatusAssigned:
		return "🟡 В работе"
	case StatusUsed:
		return "✅ Использован"
	case StatusInvalid:
		return "⛔ Невалид"
	}
	return string(s)
}

// MaxActivePerManager — сколько ресурсов менеджер может держать в работе.
const MaxActivePerManager = 5

// CanTransition описывает жизненный цикл ресурса:
// free → assigned → {free, used, invalid}, invalid → free (правка автором),
// used — терминальный.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusFree:
		return to == StatusAssigned
	case StatusAssigned:
		return to == StatusFree || to == StatusUsed || to == StatusInvalid
	case StatusInvalid:
		return to == StatusFree
	}
	return false
}

type Item struct {
	ID             int64
	Type           ItemType
	BankID         int64
	BankName       string // подтягивается join-ом, в таблице не хранится
	Data           string
	Screenshots    []string
	Status         Status
	CreatedBy      int64
	AssignedTo     int64
	AssignedAt     *time.Time
	UsedWithFormID int64
	InvalidComment string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatRow — строка сводки пула: банк × тип × статус.
type StatRow struct {
	BankName string
	Type     ItemType
	Status   Status
	Count    int
}
