package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/pool"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
	"github.com/vkamlov/dropdesk-bot/internal/infra/metrics"
)

// Пул ресурсов со стороны менеджера: взять свободный, вернуть, пометить
// невалидом или использованным. Выдача идёт с головы очереди (FIFO), лимит
// активных — pool.MaxActivePerManager.

func poolItemShort(it *pool.Item) string {
	return fmt.Sprintf("#%d · %s · %s", it.ID, it.BankName, pool.TypeTitle(it.Type))
}

func poolItemText(it *pool.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔗 Ресурс #%d\n", it.ID)
	fmt.Fprintf(&b, "Банк: %s\n", it.BankName)
	fmt.Fprintf(&b, "Тип: %s\n", pool.TypeTitle(it.Type))
	fmt.Fprintf(&b, "Статус: %s", pool.StatusTitle(it.Status))
	if it.Data != "" {
		fmt.Fprintf(&b, "\n\n%s", it.Data)
	}
	if it.InvalidComment != "" {
		fmt.Fprintf(&b, "\n⛔ %s", it.InvalidComment)
	}
	return b.String()
}

// openPoolMenu — кнопка «🔗 Ресурсы».
func (b *Bot) openPoolMenu(ctx context.Context, u *users.User, chatID int64) {
	mine, err := b.pool.ListAssigned(ctx, u.ID)
	if err != nil {
		b.replyError(chatID, Internal("pool list", err))
		return
	}
	text := fmt.Sprintf("🔗 Ресурсы\nВ работе: %d из %d.", len(mine), pool.MaxActivePerManager)
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Взять ресурс", "pool:take"),
		),
	}
	for i := range mine {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				poolItemShort(&mine[i]), fmt.Sprintf("pool:my:%d", mine[i].ID)),
		))
	}
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(m)
}

func poolTypeKeyboard(bankID int64) tgbotapi.InlineKeyboardMarkup {
	btn := func(title string, t string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(title, fmt.Sprintf("pool:type:%d:%s", bankID, t))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("Ссылка", string(pool.TypeLink)),
			btn("eSIM", string(pool.TypeESIM)),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("Ссылка + eSIM", string(pool.TypeLinkESIM)),
			btn("Любой", "any"),
		),
		cancelRow(),
	)
}

func poolItemActions(it *pool.Item) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Вернуть", fmt.Sprintf("pool:free:%d", it.ID)),
			tgbotapi.NewInlineKeyboardButtonData("⛔ Невалид", fmt.Sprintf("pool:bad:%d", it.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Использован", fmt.Sprintf("pool:used:%d", it.ID)),
		),
	)
}

func (b *Bot) cbPool(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if !hasRole(u, users.RoleDropManager) || len(parts) < 2 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	switch parts[1] {
	case "take":
		list, err := b.banks.List(ctx)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("banks list", err))
			return
		}
		if len(list) == 0 {
			_ = b.answerCallback(cb, "Справочник банков пуст", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			"По какому банку нужен ресурс?", banksKeyboard(list, "pool:bank"))
		b.send(edit)

	case "bank":
		bankID, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		_ = b.answerCallback(cb, "", false)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			"Какой тип ресурса?", poolTypeKeyboard(bankID))
		b.send(edit)

	case "type":
		if len(parts) < 4 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		bankID, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		typ := pool.ItemType(parts[3])
		if parts[3] == "any" {
			typ = ""
		}
		b.takePoolItem(ctx, u, cb, bankID, typ)

	case "my":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		it, err := b.pool.Get(ctx, id)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("pool item", err))
			return
		}
		if it == nil || it.AssignedTo != u.ID || it.Status != pool.StatusAssigned {
			_ = b.answerCallback(cb, "Ресурс уже не у вас", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.sendMediaRefs(chatID, it.Screenshots)
		m := tgbotapi.NewMessage(chatID, poolItemText(it))
		m.ReplyMarkup = poolItemActions(it)
		b.send(m)

	case "free":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		if err := b.pool.Release(ctx, id, u.ID); err != nil {
			if errors.Is(err, pool.ErrNotOwner) {
				_ = b.answerCallback(cb, "Ресурс уже не у вас", true)
				return
			}
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("pool release", err))
			return
		}
		_ = b.answerCallback(cb, "Возвращён в пул", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, fmt.Sprintf("↩️ Ресурс #%d возвращён в пул.", id))

	case "bad":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		p := dialog.Payload{"item_id": float64(id)}
		if err := b.states.Set(ctx, chatID, dialog.StatePoolInvalidComment, p); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Опишите, что не так с ресурсом:")

	case "used":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.askUsedForm(ctx, u, chatID, cb.Message.MessageID, id)

	case "usedf":
		itemID, ok := parseID(parts, 2)
		if !ok || len(parts) < 4 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		// formID == 0 — «без анкеты»
		formID, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil || formID < 0 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		if err := b.pool.MarkUsed(ctx, itemID, u.ID, formID); err != nil {
			if errors.Is(err, pool.ErrNotOwner) {
				_ = b.answerCallback(cb, "Ресурс уже не у вас", true)
				return
			}
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("pool mark used", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		text := fmt.Sprintf("✅ Ресурс #%d помечен использованным.", itemID)
		if formID != 0 {
			text = fmt.Sprintf("✅ Ресурс #%d привязан к анкете #%d.", itemID, formID)
		}
		b.editTextAndClear(chatID, cb.Message.MessageID, text)
		b.notifyPoolUsed(ctx, itemID, formID)

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

// takePoolItem выдаёт первый свободный ресурс очереди. Проигрыш гонки за
// конкретный ресурс не фатален: пробуем следующий.
func (b *Bot) takePoolItem(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, bankID int64, typ pool.ItemType) {
	chatID := cb.Message.Chat.ID
	free, err := b.pool.ListFree(ctx, bankID, typ)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("pool free list", err))
		return
	}
	if len(free) == 0 {
		_ = b.answerCallback(cb, "Свободных ресурсов нет", true)
		b.notifyPoolEmpty(ctx, bankID, typ)
		return
	}

	var taken *pool.Item
	for i := range free {
		it, err := b.pool.Assign(ctx, free[i].ID, u.ID)
		if err != nil {
			if errors.Is(err, pool.ErrAlreadyAssigned) {
				continue
			}
			if errors.Is(err, pool.ErrCapacityExceeded) {
				_ = b.answerCallback(cb, fmt.Sprintf("Лимит: не больше %d ресурсов в работе", pool.MaxActivePerManager), true)
				return
			}
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("pool assign", err))
			return
		}
		taken = it
		break
	}
	if taken == nil {
		_ = b.answerCallback(cb, "Ресурсы разобрали, попробуйте ещё раз", true)
		return
	}

	metrics.PoolAssigned.Inc()
	_ = b.answerCallback(cb, "", false)
	b.editTextAndClear(chatID, cb.Message.MessageID, "Ресурс закреплён за вами:")
	b.sendMediaRefs(chatID, taken.Screenshots)
	m := tgbotapi.NewMessage(chatID, poolItemText(taken))
	m.ReplyMarkup = poolItemActions(taken)
	b.send(m)
}

// askUsedForm — к какой анкете привязать использованный ресурс.
func (b *Bot) askUsedForm(ctx context.Context, u *users.User, chatID int64, messageID int, itemID int64) {
	from, to := b.periodRange(PeriodLast30)
	list, err := b.forms.ListByManager(ctx, u.ID, from, to)
	if err != nil {
		b.replyError(chatID, Internal("forms list", err))
		return
	}
	const limit = 10
	if len(list) > limit {
		list = list[:limit]
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+1)
	for i := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				formShort(&list[i]), fmt.Sprintf("pool:usedf:%d:%d", itemID, list[i].ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Без анкеты", fmt.Sprintf("pool:usedf:%d:0", itemID)),
	))
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		"С какой анкетой использован ресурс?", tgbotapi.NewInlineKeyboardMarkup(rows...))
	b.send(edit)
}

func (b *Bot) poolHandleMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	if !hasRole(u, users.RoleDropManager) {
		_ = b.states.Reset(ctx, chatID)
		return
	}
	if st.State != dialog.StatePoolInvalidComment {
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки меню."))
		return
	}

	comment := strings.TrimSpace(msg.Text)
	if comment == "" {
		b.send(tgbotapi.NewMessage(chatID, "Опишите проблему текстом, например «ссылка не открывается»."))
		return
	}
	itemID, ok := dialog.GetInt64(st.Payload, "item_id")
	if !ok {
		b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте «🔗 Ресурсы» заново.")
		return
	}
	if err := b.pool.MarkInvalid(ctx, itemID, u.ID, comment); err != nil {
		if errors.Is(err, pool.ErrNotOwner) {
			b.resetToMenu(ctx, chatID, "Ресурс уже не у вас.")
			return
		}
		b.replyError(chatID, Internal("pool mark invalid", err))
		return
	}
	_ = b.states.Reset(ctx, chatID)
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("⛔ Ресурс #%d помечен невалидом, автор получит уведомление.", itemID)))
	b.notifyPoolCreator(ctx, itemID, comment)
}

// notifyPoolEmpty сообщает викторщикам, что запрос менеджера упёрся в
// пустой пул — пора пополнять.
func (b *Bot) notifyPoolEmpty(ctx context.Context, bankID int64, typ pool.ItemType) {
	wiks, err := b.users.ListByRole(ctx, users.RoleWictory)
	if err != nil || len(wiks) == 0 {
		return
	}
	bank, err := b.banks.Get(ctx, bankID)
	if err != nil || bank == nil {
		return
	}
	what := bank.Name
	if typ != "" {
		what += " · " + pool.TypeTitle(typ)
	}
	text := fmt.Sprintf("📭 Пул пуст: менеджер запросил «%s», свободных ресурсов нет.", what)
	for i := range wiks {
		b.send(tgbotapi.NewMessage(wiks[i].TgID, text))
	}
}

// notifyPoolCreator сообщает автору ресурса о невалиде.
func (b *Bot) notifyPoolCreator(ctx context.Context, itemID int64, comment string) {
	it, err := b.pool.Get(ctx, itemID)
	if err != nil || it == nil {
		return
	}
	creator, err := b.users.GetByID(ctx, it.CreatedBy)
	if err != nil || creator == nil {
		return
	}
	b.send(tgbotapi.NewMessage(creator.TgID, fmt.Sprintf(
		"⛔ Ресурс %s помечен невалидом.\nПричина: %s\nИсправьте его через «⛔ Невалиды».",
		poolItemShort(it), comment)))
}

// notifyPoolUsed сообщает автору ресурса, что тот ушёл в работу.
func (b *Bot) notifyPoolUsed(ctx context.Context, itemID, formID int64) {
	it, err := b.pool.Get(ctx, itemID)
	if err != nil || it == nil {
		return
	}
	creator, err := b.users.GetByID(ctx, it.CreatedBy)
	if err != nil || creator == nil {
		return
	}
	text := fmt.Sprintf("✅ Ресурс %s использован.", poolItemShort(it))
	if formID != 0 {
		text += fmt.Sprintf("\nАнкета: #%d", formID)
	}
	if it.Data != "" {
		text += "\n\n" + it.Data
	}
	b.send(tgbotapi.NewMessage(creator.TgID, text))
}

func parseID(parts []string, idx int) (int64, bool) {
	if idx >= len(parts) {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[idx], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
