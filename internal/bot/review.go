package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
	"github.com/vkamlov/dropdesk-bot/internal/infra/metrics"
)

// openReviewQueue — кнопка «📥 Проверка»: очередь pending-анкет источника.
func (b *Bot) openReviewQueue(ctx context.Context, u *users.User, chatID int64) {
	list, err := b.forms.ListPendingBySource(ctx, u.Source)
	if err != nil {
		b.replyError(chatID, Internal("pending list", err))
		return
	}
	if len(list) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Очередь пуста — всё проверено ✅"))
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for i := range list {
		f := &list[i]
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(formShort(f), fmt.Sprintf("rev:open:%d", f.ID)),
		))
	}
	m := tgbotapi.NewMessage(chatID, fmt.Sprintf("На проверке: %d.", len(list)))
	m.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
	b.send(m)
}

func reviewKeyboard(formID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", fmt.Sprintf("rev:ok:%d", formID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("rev:no:%d", formID)),
		),
	)
}

func (b *Bot) cbReview(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if !hasRole(u, users.RoleTeamLead) || len(parts) < 3 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		return
	}

	switch parts[1] {
	case "open":
		f, err := b.forms.Get(ctx, id)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("form load", err))
			return
		}
		if f == nil || f.Source != u.Source {
			_ = b.answerCallback(cb, "Анкета недоступна", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		if f.Status != forms.StatusPending {
			b.send(tgbotapi.NewMessage(chatID,
				fmt.Sprintf("Анкета #%d уже обработана: %s.", f.ID, forms.StatusTitle(f.Status))))
			return
		}
		kb := reviewKeyboard(f.ID)
		b.sendFormView(ctx, chatID, f, true, &kb)

	case "ok":
		f, err := b.forms.Approve(ctx, id, u.ID)
		if err != nil {
			if errors.Is(err, forms.ErrNotPending) {
				_ = b.answerCallback(cb, "Уже обработана", true)
				return
			}
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("approve", err))
			return
		}
		metrics.FormsReviewed.WithLabelValues("approved").Inc()
		_ = b.answerCallback(cb, "Подтверждена", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, fmt.Sprintf("Анкета #%d подтверждена ✅", f.ID))
		b.afterApprove(ctx, f)

	case "no":
		f, err := b.forms.Get(ctx, id)
		if err != nil || f == nil {
			_ = b.answerCallback(cb, "Анкета недоступна", true)
			return
		}
		if f.Status != forms.StatusPending {
			_ = b.answerCallback(cb, "Уже обработана", true)
			return
		}
		p := dialog.Payload{"form_id": float64(id)}
		if err := b.states.Set(ctx, chatID, dialog.StateTLRejectComment, p); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID,
			fmt.Sprintf("Отклонение анкеты #%d. Напишите, что исправить:", id))

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

// afterApprove уведомляет менеджера и постит карточку в его рабочую группу.
func (b *Bot) afterApprove(ctx context.Context, f *forms.Form) {
	mgr, err := b.users.GetByID(ctx, f.ManagerID)
	if err != nil || mgr == nil {
		b.log.Error("manager lookup after approve", "form_id", f.ID, "err", err)
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💸 Выплата", fmt.Sprintf("pay:start:%d", f.ID)),
		),
	)
	m := tgbotapi.NewMessage(mgr.TgID, fmt.Sprintf("✅ Анкета #%d подтверждена. Зафиксируйте выплату.", f.ID))
	m.ReplyMarkup = kb
	b.send(m)

	if mgr.ForwardGroupID == 0 {
		b.log.Warn("forward group not bound", "manager_id", mgr.ID, "form_id", f.ID)
		return
	}
	if len(f.Screenshots) > 0 {
		b.sendMediaRefs(mgr.ForwardGroupID, f.Screenshots)
	}
	b.send(tgbotapi.NewMessage(mgr.ForwardGroupID, formText(f, mgr.Tag())))
}

// reviewHandleMessage — текстовые шаги тимлида (комментарий отклонения).
func (b *Bot) reviewHandleMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	if st.State != dialog.StateTLRejectComment || !hasRole(u, users.RoleTeamLead) {
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки меню."))
		return
	}
	comment := strings.TrimSpace(msg.Text)
	if comment == "" {
		b.send(tgbotapi.NewMessage(chatID, "Комментарий обязателен: менеджер должен понять, что исправить."))
		return
	}
	fid, ok := dialog.GetInt64(st.Payload, "form_id")
	if !ok {
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, "Диалог устарел, откройте очередь заново."))
		return
	}

	f, err := b.forms.Reject(ctx, fid, u.ID, comment)
	if err != nil {
		if errors.Is(err, forms.ErrNotPending) {
			_ = b.states.Reset(ctx, chatID)
			b.send(tgbotapi.NewMessage(chatID, "Анкета уже обработана."))
			return
		}
		b.replyError(chatID, Internal("reject", err))
		return
	}
	metrics.FormsReviewed.WithLabelValues("rejected").Inc()
	_ = b.states.Reset(ctx, chatID)
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Анкета #%d отклонена.", f.ID)))

	if mgr, err := b.users.GetByID(ctx, f.ManagerID); err == nil && mgr != nil {
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ Исправить и отправить", fmt.Sprintf("mf:fix:%d", f.ID)),
			),
		)
		m := tgbotapi.NewMessage(mgr.TgID,
			fmt.Sprintf("❌ Анкета #%d отклонена.\nПричина: %s", f.ID, comment))
		m.ReplyMarkup = kb
		b.send(m)
	}
}

/*** Дубли ***/

// openDuplicates — кнопка «👥 Дубли»: журнал попыток за период.
func (b *Bot) openDuplicates(ctx context.Context, u *users.User, chatID int64) {
	m := tgbotapi.NewMessage(chatID, "Журнал дублей — выберите период:")
	m.ReplyMarkup = periodsKeyboard("dup:per")
	b.send(m)
}

func (b *Bot) cbDuplicates(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if !hasRole(u, users.RoleTeamLead) || len(parts) < 3 || parts[1] != "per" {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID
	p := Period(parts[2])
	if p == PeriodCustom {
		pl := dialog.Payload{"period_for": "dups"}
		if err := b.states.Set(ctx, chatID, dialog.StatePeriodCustom, pl); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID,
			"Введите период в формате ДД.ММ.ГГГГ-ДД.ММ.ГГГГ.")
		return
	}
	_ = b.answerCallback(cb, periodTitle(p), false)
	from, to := b.periodRange(p)
	b.showDuplicates(ctx, chatID, cb.Message.MessageID, periodTitle(p), from, to)
}

func (b *Bot) showDuplicates(ctx context.Context, chatID int64, messageID int, title string, from, to time.Time) {
	list, err := b.dups.ListByPeriod(ctx, from, to)
	if err != nil {
		b.replyError(chatID, Internal("duplicates list", err))
		return
	}
	if len(list) == 0 {
		b.sendOrEdit(chatID, messageID, fmt.Sprintf("%s: дублей нет.", title), nil)
		return
	}

	tags := map[int64]string{}
	tagOf := func(id int64) string {
		if t, ok := tags[id]; ok {
			return t
		}
		t := "—"
		if u, err := b.users.GetByID(ctx, id); err == nil && u != nil {
			t = u.Tag()
		}
		tags[id] = t
		return t
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Дубли (%s): %d\n\n", title, len(list))
	for _, r := range list {
		fmt.Fprintf(&sb, "📞 %s — %s\nзанято анкетой #%d (%s), пытался %s, %s\n\n",
			r.Phone, r.BankName, r.ExistingFormID,
			tagOf(r.ExistingManagerID), tagOf(r.AttemptedManagerID),
			r.CreatedAt.In(b.loc).Format("02.01 15:04"))
	}
	b.sendOrEdit(chatID, messageID, strings.TrimRight(sb.String(), "\n"), nil)
}
