package users

import "time"

type Role string

const (
	RoleTeamLead    Role = "team_lead"
	RoleDropManager Role = "drop_manager"
	RoleWictory     Role = "wictory"
)

type Source string

const (
	SourceTG Source = "tg"
	SourceFB Source = "fb"
)

func (s Source) Title() string {
	switch s {
	case SourceTG:
		return "TG"
	case SourceFB:
		return "FB"
	}
	return string(s)
}

func RoleTitle(r Role) string {
	switch r {
	case RoleTeamLead:
		return "Тимлид"
	case RoleDropManager:
		return "Дроп-менеджер"
	case RoleWictory:
		return "Wictory"
	}
	return string(r)
}

type User struct {
	ID             int64
	TgID           int64
	Username       string
	FullName       string
	Role           Role   // пустая строка — доступа нет
	Source         Source // tg|fb для тимлидов и дроп-менеджеров
	ManagerTag     string
	ForwardGroupID int64 // chat_id привязанной группы, 0 — не привязана
	LastMessageID  int64 // верхний id сообщений бота в личке, 0 — неизвестен
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Tag возвращает подпись менеджера для уведомлений и отчётов.
func (u *User) Tag() string {
	if u.ManagerTag != "" {
		return u.ManagerTag
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FullName
}

type Telegram struct {
	ID       int64
	Username string
	FullName string
}
