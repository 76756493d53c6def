package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/pool"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

// Сторона wictory: пополнение пула, починка невалидов, сводка остатков.

const maxPoolScreens = 10

func wikTypeKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := func(title string, t pool.ItemType) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(title, "wik:type:"+string(t))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("Ссылка", pool.TypeLink),
			btn("eSIM", pool.TypeESIM),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("Ссылка + eSIM", pool.TypeLinkESIM),
		),
		cancelRow(),
	)
}

// wikStartAdd — кнопка «➕ Добавить ресурс».
func (b *Bot) wikStartAdd(ctx context.Context, u *users.User, chatID int64) {
	if err := b.states.Set(ctx, chatID, dialog.StateWikAddType, dialog.Payload{}); err != nil {
		b.replyError(chatID, Internal("dialog", err))
		return
	}
	m := tgbotapi.NewMessage(chatID, "Какой тип ресурса добавляем?")
	m.ReplyMarkup = wikTypeKeyboard()
	b.send(m)
}

// wikOpenInvalids — кнопка «⛔ Невалиды».
func (b *Bot) wikOpenInvalids(ctx context.Context, u *users.User, chatID int64) {
	list, err := b.pool.ListInvalidByCreator(ctx, u.ID)
	if err != nil {
		b.replyError(chatID, Internal("pool invalids", err))
		return
	}
	if len(list) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Невалидов нет 👍"))
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for i := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				poolItemShort(&list[i]), fmt.Sprintf("wik:inv:%d", list[i].ID)),
		))
	}
	m := tgbotapi.NewMessage(chatID, fmt.Sprintf("⛔ Невалиды: %d", len(list)))
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(m)
}

// wikOpenStats — кнопка «📊 Пул»: остатки по банкам и типам.
func (b *Bot) wikOpenStats(ctx context.Context, chatID int64) {
	stats, err := b.pool.StatsByBank(ctx)
	if err != nil {
		b.replyError(chatID, Internal("pool stats", err))
		return
	}
	if len(stats) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Пул пуст."))
		return
	}
	var sb strings.Builder
	sb.WriteString("📊 Пул ресурсов\n")
	lastBank := ""
	for _, s := range stats {
		if s.BankName != lastBank {
			fmt.Fprintf(&sb, "\n🏦 %s\n", s.BankName)
			lastBank = s.BankName
		}
		fmt.Fprintf(&sb, "  %s · %s — %d\n", pool.TypeTitle(s.Type), pool.StatusTitle(s.Status), s.Count)
	}
	b.send(tgbotapi.NewMessage(chatID, sb.String()))
}

func (b *Bot) cbWictory(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if !hasRole(u, users.RoleWictory) || len(parts) < 2 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	switch parts[1] {
	case "type":
		if len(parts) < 3 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		typ := pool.ItemType(parts[2])
		if typ != pool.TypeLink && typ != pool.TypeESIM && typ != pool.TypeLinkESIM {
			_ = b.answerCallback(cb, "", false)
			return
		}
		st, err := b.states.Get(ctx, chatID)
		if err != nil || st == nil || st.State != dialog.StateWikAddType {
			_ = b.answerCallback(cb, "Диалог устарел", true)
			return
		}
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
		p := st.Payload
		p["wik_type"] = string(typ)
		if err := b.states.Set(ctx, chatID, dialog.StateWikAddBank, p); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			"К какому банку относится ресурс?", banksKeyboard(list, "wik:bank"))
		b.send(edit)

	case "bank":
		bankID, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		st, err := b.states.Get(ctx, chatID)
		if err != nil || st == nil || st.State != dialog.StateWikAddBank {
			_ = b.answerCallback(cb, "Диалог устарел", true)
			return
		}
		bank, err := b.banks.Get(ctx, bankID)
		if err != nil || bank == nil {
			_ = b.answerCallback(cb, "Банк не найден", true)
			return
		}
		p := st.Payload
		p["bank_id"] = float64(bankID)
		typ := pool.ItemType(payloadString(p, "wik_type"))
		_ = b.answerCallback(cb, "", false)
		if typ.NeedsScreens() {
			if err := b.states.Set(ctx, chatID, dialog.StateWikAddScreens, p); err != nil {
				b.replyError(chatID, Internal("dialog", err))
				return
			}
			b.editTextAndClear(chatID, cb.Message.MessageID, fmt.Sprintf(
				"Пришлите скриншоты eSIM (до %d), затем нажмите «Готово».", maxPoolScreens))
			return
		}
		if err := b.states.Set(ctx, chatID, dialog.StateWikAddData, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		b.editTextAndClear(chatID, cb.Message.MessageID, "Пришлите данные ресурса (ссылку):")

	case "screens":
		if len(parts) < 3 || parts[2] != "done" {
			_ = b.answerCallback(cb, "", false)
			return
		}
		st, err := b.states.Get(ctx, chatID)
		if err != nil || st == nil || st.State != dialog.StateWikAddScreens {
			_ = b.answerCallback(cb, "Диалог устарел", true)
			return
		}
		if len(dialog.GetStrings(st.Payload, "screens")) == 0 {
			_ = b.answerCallback(cb, "Нужен хотя бы один скриншот", true)
			return
		}
		if err := b.states.Set(ctx, chatID, dialog.StateWikAddData, st.Payload); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Пришлите данные ресурса (ссылку, данные eSIM):")

	case "save":
		st, err := b.states.Get(ctx, chatID)
		if err != nil || st == nil || st.State != dialog.StateWikAddPreview {
			_ = b.answerCallback(cb, "Диалог устарел", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.saveNewPoolItem(ctx, u, chatID, cb.Message.MessageID, st.Payload)

	case "redo":
		st, err := b.states.Get(ctx, chatID)
		if err != nil || st == nil || st.State != dialog.StateWikAddPreview {
			_ = b.answerCallback(cb, "Диалог устарел", true)
			return
		}
		p := st.Payload
		delete(p, "data")
		delete(p, "screens")
		typ := pool.ItemType(payloadString(p, "wik_type"))
		next := dialog.StateWikAddData
		prompt := "Пришлите данные ресурса (ссылку):"
		if typ.NeedsScreens() {
			next = dialog.StateWikAddScreens
			prompt = fmt.Sprintf("Пришлите скриншоты eSIM (до %d), затем нажмите «Готово».", maxPoolScreens)
		}
		if err := b.states.Set(ctx, chatID, next, p); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, prompt)

	case "inv":
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
		if it == nil || it.CreatedBy != u.ID || it.Status != pool.StatusInvalid {
			_ = b.answerCallback(cb, "Ресурс не найден среди ваших невалидов", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.sendMediaRefs(chatID, it.Screenshots)
		m := tgbotapi.NewMessage(chatID, poolItemText(it))
		m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔧 Исправить", fmt.Sprintf("wik:fix:%d", id)),
			),
		)
		b.send(m)

	case "fix":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		p := dialog.Payload{"item_id": float64(id)}
		if err := b.states.Set(ctx, chatID, dialog.StateWikFixData, p); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID,
			"Пришлите новые данные ресурса («-» — оставить прежние):")

	case "fixscreens":
		if len(parts) < 3 || parts[2] != "done" {
			_ = b.answerCallback(cb, "", false)
			return
		}
		st, err := b.states.Get(ctx, chatID)
		if err != nil || st == nil || st.State != dialog.StateWikFixScreens {
			_ = b.answerCallback(cb, "Диалог устарел", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Сохраняю…")
		b.savePoolFix(ctx, u, chatID, st.Payload)

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

func (b *Bot) wikHandleMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	if !hasRole(u, users.RoleWictory) {
		_ = b.states.Reset(ctx, chatID)
		return
	}
	p := st.Payload

	switch st.State {
	case dialog.StateWikAddType, dialog.StateWikAddBank, dialog.StateWikAddPreview:
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки."))

	case dialog.StateWikAddScreens, dialog.StateWikFixScreens:
		b.capturePoolScreen(ctx, chatID, msg, st)

	case dialog.StateWikAddData:
		data := strings.TrimSpace(msg.Text)
		if data == "" {
			b.send(tgbotapi.NewMessage(chatID, "Пришлите данные текстом."))
			return
		}
		p["data"] = data
		if err := b.states.Set(ctx, chatID, dialog.StateWikAddPreview, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		b.sendPoolPreview(ctx, chatID, p)

	case dialog.StateWikFixData:
		data := strings.TrimSpace(msg.Text)
		if data == "" {
			b.send(tgbotapi.NewMessage(chatID, "Пришлите данные или «-», чтобы оставить прежние."))
			return
		}
		if data != "-" {
			p["data"] = data
		}
		itemID, ok := dialog.GetInt64(p, "item_id")
		if !ok {
			b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте «⛔ Невалиды» заново.")
			return
		}
		it, err := b.pool.Get(ctx, itemID)
		if err != nil || it == nil {
			b.replyError(chatID, Internal("pool item", err))
			return
		}
		if it.Type.NeedsScreens() {
			if err := b.states.Set(ctx, chatID, dialog.StateWikFixScreens, p); err != nil {
				b.replyError(chatID, Internal("dialog", err))
				return
			}
			m := tgbotapi.NewMessage(chatID,
				"Пришлите новые скриншоты либо нажмите «Готово», чтобы оставить прежние.")
			m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("✅ Готово", "wik:fixscreens:done"),
				),
				cancelRow(),
			)
			b.send(m)
			return
		}
		b.savePoolFix(ctx, u, chatID, p)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки меню."))
	}
}

// capturePoolScreen копит вложения шага скринов; альбом подтверждается одним
// сообщением после окна тишины.
func (b *Bot) capturePoolScreen(ctx context.Context, chatID int64, msg *tgbotapi.Message, st *dialog.Item) {
	ref, ok := mediaFromMessage(msg)
	if !ok {
		b.send(tgbotapi.NewMessage(chatID, "Пришлите фото, видео или документ."))
		return
	}
	p := st.Payload
	screens := dialog.GetStrings(p, "screens")
	if len(screens) >= maxPoolScreens {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Не больше %d вложений.", maxPoolScreens)))
		return
	}
	screens = append(screens, ref)
	raw := make([]any, 0, len(screens))
	for _, s := range screens {
		raw = append(raw, s)
	}
	p["screens"] = raw
	if err := b.states.Set(ctx, chatID, st.State, p); err != nil {
		b.replyError(chatID, Internal("dialog", err))
		return
	}

	count := len(screens)
	doneData := "wik:screens:done"
	if st.State == dialog.StateWikFixScreens {
		doneData = "wik:fixscreens:done"
	}
	ack := func() {
		m := tgbotapi.NewMessage(chatID, fmt.Sprintf("Принято: %d. Завершите кнопкой «Готово».", count))
		m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Готово", doneData),
			),
		)
		b.send(m)
	}
	if msg.MediaGroupID != "" {
		b.albums.Observe(chatID, msg.MediaGroupID, ack)
		return
	}
	ack()
}

// sendPoolPreview показывает будущий ресурс перед сохранением.
func (b *Bot) sendPoolPreview(ctx context.Context, chatID int64, p dialog.Payload) {
	bankID, _ := dialog.GetInt64(p, "bank_id")
	bankName := "—"
	if bank, err := b.banks.Get(ctx, bankID); err == nil && bank != nil {
		bankName = bank.Name
	}
	typ := pool.ItemType(payloadString(p, "wik_type"))
	screens := dialog.GetStrings(p, "screens")

	var sb strings.Builder
	sb.WriteString("Проверьте ресурс:\n")
	fmt.Fprintf(&sb, "Банк: %s\n", bankName)
	fmt.Fprintf(&sb, "Тип: %s\n", pool.TypeTitle(typ))
	if len(screens) > 0 {
		fmt.Fprintf(&sb, "Скриншотов: %d\n", len(screens))
	}
	fmt.Fprintf(&sb, "\n%s", payloadString(p, "data"))

	b.sendMediaRefs(chatID, screens)
	m := tgbotapi.NewMessage(chatID, sb.String())
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Сохранить", "wik:save"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Заново", "wik:redo"),
		),
		cancelRow(),
	)
	b.send(m)
}

func (b *Bot) saveNewPoolItem(ctx context.Context, u *users.User, chatID int64, messageID int, p dialog.Payload) {
	bankID, ok := dialog.GetInt64(p, "bank_id")
	typ := pool.ItemType(payloadString(p, "wik_type"))
	data := payloadString(p, "data")
	if !ok || typ == "" || data == "" {
		b.resetToMenu(ctx, chatID, "Диалог устарел. Начните добавление заново.")
		return
	}
	it, err := b.pool.Add(ctx, typ, bankID, data, dialog.GetStrings(p, "screens"), u.ID)
	if err != nil {
		b.replyError(chatID, Internal("pool add", err))
		return
	}
	_ = b.states.Reset(ctx, chatID)
	b.editTextAndClear(chatID, messageID, fmt.Sprintf("💾 Ресурс %s добавлен в пул.", poolItemShort(it)))
}

// savePoolFix возвращает исправленный невалид в пул. Пустые данные или
// скрины в payload означают «оставить прежние».
func (b *Bot) savePoolFix(ctx context.Context, u *users.User, chatID int64, p dialog.Payload) {
	itemID, ok := dialog.GetInt64(p, "item_id")
	if !ok {
		b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте «⛔ Невалиды» заново.")
		return
	}
	it, err := b.pool.Get(ctx, itemID)
	if err != nil || it == nil {
		b.replyError(chatID, Internal("pool item", err))
		return
	}
	data := payloadString(p, "data")
	if data == "" {
		data = it.Data
	}
	screens := dialog.GetStrings(p, "screens")
	if len(screens) == 0 {
		screens = it.Screenshots
	}
	if err := b.pool.SaveFixed(ctx, itemID, u.ID, data, screens); err != nil {
		if errors.Is(err, pool.ErrNotOwner) {
			b.resetToMenu(ctx, chatID, "Ресурс уже не в невалидах.")
			return
		}
		b.replyError(chatID, Internal("pool save fixed", err))
		return
	}
	_ = b.states.Reset(ctx, chatID)
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("🔧 Ресурс #%d исправлен и возвращён в пул.", itemID)))
}

func payloadString(p dialog.Payload, key string) string {
	s, _ := p[key].(string)
	return s
}
