package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

// bankHashtag — «#Пумб»: название без пробелов с решёткой.
func bankHashtag(name string) string {
	if name == "" {
		return ""
	}
	return "#" + strings.ReplaceAll(name, " ", "")
}

func contactLine(label string, c *forms.ForwardContact) string {
	if c == nil {
		return ""
	}
	parts := []string{}
	if c.Username != "" {
		parts = append(parts, "@"+strings.TrimPrefix(c.Username, "@"))
	}
	if c.DisplayName != "" {
		parts = append(parts, c.DisplayName)
	}
	if c.Phone != "" {
		parts = append(parts, c.Phone)
	}
	if len(parts) == 0 {
		return ""
	}
	return label + ": " + strings.Join(parts, ", ") + "\n"
}

// formText — полная карточка анкеты.
func formText(f *forms.Form, ownerTag string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Анкета #%d (%s)\n", f.ID, f.Source.Title())
	fmt.Fprintf(&b, "Статус: %s\n", forms.StatusTitle(f.Status))
	if ownerTag != "" {
		fmt.Fprintf(&b, "Менеджер: %s\n", ownerTag)
	}
	if f.Source == users.SourceFB {
		fmt.Fprintf(&b, "Трафик: %s\n", forms.TrafficTitle(f.TrafficType))
		b.WriteString(contactLine("Клиент", f.ForwardPrimary))
		if f.TrafficType == forms.TrafficReferral {
			b.WriteString(contactLine("Реферал", f.ForwardSecondary))
		}
	}
	if f.Phone != "" {
		fmt.Fprintf(&b, "📞 %s\n", f.Phone)
	}
	if f.BankName != "" {
		fmt.Fprintf(&b, "🏦 %s %s\n", f.BankName, bankHashtag(f.BankName))
	}
	if f.Password != "" {
		fmt.Fprintf(&b, "🔑 %s\n", f.Password)
	}
	fmt.Fprintf(&b, "🖼 Скринов: %d\n", len(f.Screenshots))
	if f.Comment != "" {
		fmt.Fprintf(&b, "💬 %s\n", f.Comment)
	}
	if f.TeamLeadComment != "" {
		fmt.Fprintf(&b, "📌 Комментарий тимлида: %s\n", f.TeamLeadComment)
	}
	if f.PaymentDoneAt != nil {
		fmt.Fprintf(&b, "💸 Выплата зафиксирована %s\n", f.PaymentDoneAt.Format("02.01.2006 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formShort — строка в списках.
func formShort(f *forms.Form) string {
	bank := f.BankName
	if bank == "" {
		bank = "—"
	}
	phone := f.Phone
	if phone == "" {
		phone = "—"
	}
	return fmt.Sprintf("#%d · %s · %s · %s", f.ID, phone, bank, forms.StatusTitle(f.Status))
}

// sendFormView показывает карточку и, при необходимости, вложения.
func (b *Bot) sendFormView(ctx context.Context, chatID int64, f *forms.Form, withMedia bool, kb *tgbotapi.InlineKeyboardMarkup) {
	ownerTag := ""
	if owner, err := b.users.GetByID(ctx, f.ManagerID); err == nil && owner != nil {
		ownerTag = owner.Tag()
	}
	if withMedia && len(f.Screenshots) > 0 {
		b.sendMediaRefs(chatID, f.Screenshots)
	}
	msg := tgbotapi.NewMessage(chatID, formText(f, ownerTag))
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	b.send(msg)
}
