package access

import (
	"time"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request — заявка на доступ. На пользователя ровно одна строка: повторное
// обращение после отказа переоткрывает её.
type Request struct {
	ID          int64
	TgID        int64
	Username    string
	FullName    string
	DesiredRole users.Role
	Status      Status
	IsNew       bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *Request) Label() string {
	if r.Username != "" {
		return "@" + r.Username
	}
	return r.FullName
}
