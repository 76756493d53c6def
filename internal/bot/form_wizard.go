package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/banks"
	"github.com/vkamlov/dropdesk-bot/internal/domain/duplicates"
	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
	"github.com/vkamlov/dropdesk-bot/internal/infra/metrics"
)

const maxFreeScreens = 20

// openFormEntry — кнопка «📝 Анкета»: продолжить черновик либо завести новую.
// Анкеты заполняются только в открытую смену.
func (b *Bot) openFormEntry(ctx context.Context, u *users.User, chatID int64) {
	sh, err := b.shifts.GetOpen(ctx, u.ID)
	if err != nil {
		b.replyError(chatID, Internal("shift lookup", err))
		return
	}
	if sh == nil {
		b.replyError(chatID, Precondition("Сначала начните смену — кнопка «🔄 Смена»."))
		return
	}

	f, err := b.forms.GetDraft(ctx, u.ID)
	if err != nil {
		b.replyError(chatID, Internal("draft lookup", err))
		return
	}
	if f == nil {
		f, err = b.forms.Create(ctx, u.ID, u.Source)
		if err != nil {
			b.replyError(chatID, Internal("form create", err))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Новая анкета #%d (%s).", f.ID, f.Source.Title())))
	} else {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Продолжаем анкету #%d.", f.ID)))
	}

	p := dialog.Payload{"form_id": float64(f.ID)}
	b.askStep(ctx, chatID, f, b.nextStepFor(ctx, f), p)
}

func (b *Bot) requiredScreensFor(ctx context.Context, f *forms.Form) int {
	if f.BankID == 0 {
		return 0
	}
	bk, err := b.banks.Get(ctx, f.BankID)
	if err != nil || bk == nil {
		return 0
	}
	return bk.RequiredScreens(f.Source)
}

func (b *Bot) nextStepFor(ctx context.Context, f *forms.Form) forms.Step {
	return forms.NextStep(f, b.requiredScreensFor(ctx, f))
}

// askStep выводит запрос очередного шага и фиксирует состояние диалога.
func (b *Bot) askStep(ctx context.Context, chatID int64, f *forms.Form, step forms.Step, p dialog.Payload) {
	if p == nil {
		p = dialog.Payload{}
	}
	p["form_id"] = float64(f.ID)

	switch step {
	case forms.StepTraffic:
		if err := b.states.Set(ctx, chatID, dialog.StateFormTraffic, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		m := tgbotapi.NewMessage(chatID, "Откуда пришёл клиент?")
		m.ReplyMarkup = trafficKeyboard()
		b.send(m)

	case forms.StepForwardPrimary:
		if err := b.states.Set(ctx, chatID, dialog.StateFormForward1, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		m := tgbotapi.NewMessage(chatID,
			"Перешлите сообщение клиента либо отправьте его @username или контакт.")
		m.ReplyMarkup = cancelKeyboard()
		b.send(m)

	case forms.StepForwardSecondary:
		if err := b.states.Set(ctx, chatID, dialog.StateFormForward2, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		m := tgbotapi.NewMessage(chatID,
			"Реферальный трафик: перешлите сообщение друга, который привёл клиента, либо его @username или контакт.")
		m.ReplyMarkup = cancelKeyboard()
		b.send(m)

	case forms.StepPhone:
		if err := b.states.Set(ctx, chatID, dialog.StateFormPhone, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		m := tgbotapi.NewMessage(chatID, "Введите номер телефона дропа:")
		m.ReplyMarkup = cancelKeyboard()
		b.send(m)

	case forms.StepBank:
		all, err := b.banks.List(ctx)
		if err != nil {
			b.replyError(chatID, Internal("banks list", err))
			return
		}
		avail := banks.AvailableFor(all, f.Source)
		if len(avail) == 0 {
			b.send(tgbotapi.NewMessage(chatID, "Нет доступных банков. Обратитесь к тимлиду."))
			return
		}
		if err := b.states.Set(ctx, chatID, dialog.StateFormBank, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		m := tgbotapi.NewMessage(chatID, "Выберите банк:")
		m.ReplyMarkup = banksKeyboard(avail, "form:bank")
		b.send(m)

	case forms.StepPassword:
		if err := b.states.Set(ctx, chatID, dialog.StateFormPassword, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		if f.BankID != 0 {
			if bk, err := b.banks.Get(ctx, f.BankID); err == nil && bk != nil {
				if in := bk.Instruction(f.Source); in != "" {
					b.send(tgbotapi.NewMessage(chatID, "📌 Инструкция по банку:\n"+in))
				}
			}
		}
		m := tgbotapi.NewMessage(chatID, "Введите пароль от банка:")
		m.ReplyMarkup = cancelKeyboard()
		b.send(m)

	case forms.StepScreens:
		if err := b.states.Set(ctx, chatID, dialog.StateFormScreens, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		required := b.requiredScreensFor(ctx, f)
		var m tgbotapi.MessageConfig
		if required > 0 {
			m = tgbotapi.NewMessage(chatID,
				fmt.Sprintf("Пришлите скриншоты: %d шт. Уже есть: %d.", required, len(f.Screenshots)))
			m.ReplyMarkup = cancelKeyboard()
		} else {
			m = tgbotapi.NewMessage(chatID,
				fmt.Sprintf("Пришлите скриншоты (до %d), затем нажмите «Готово». Уже есть: %d.",
					maxFreeScreens, len(f.Screenshots)))
			m.ReplyMarkup = screensDoneKeyboard()
		}
		b.send(m)

	case forms.StepComment:
		if err := b.states.Set(ctx, chatID, dialog.StateFormComment, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		m := tgbotapi.NewMessage(chatID, "Комментарий к анкете (или «-», чтобы пропустить):")
		m.ReplyMarkup = cancelKeyboard()
		b.send(m)

	case forms.StepConfirm:
		delete(p, "edit")
		clearForwardDraft(p)
		if err := b.states.Set(ctx, chatID, dialog.StateFormConfirm, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		kb := formConfirmKeyboard()
		b.sendFormView(ctx, chatID, f, true, &kb)
	}
}

// advanceForm перечитывает анкету и задаёт следующий вопрос; в режиме
// правки возвращает к подтверждению.
func (b *Bot) advanceForm(ctx context.Context, chatID int64, formID int64, p dialog.Payload) {
	f, err := b.forms.Get(ctx, formID)
	if err != nil || f == nil {
		b.replyError(chatID, Internal("form reload", err))
		return
	}
	if dialog.GetBool(p, "edit") {
		b.askStep(ctx, chatID, f, forms.StepConfirm, p)
		return
	}
	b.askStep(ctx, chatID, f, b.nextStepFor(ctx, f), p)
}

/*** Текстовые шаги ***/

func (b *Bot) formHandleMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	fid, ok := dialog.GetInt64(st.Payload, "form_id")
	if !ok {
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, "Черновик не найден. Откройте анкету заново: «📝 Анкета»."))
		return
	}
	f, err := b.forms.Get(ctx, fid)
	if err != nil {
		b.replyError(chatID, Internal("form load", err))
		return
	}
	if f == nil || u == nil || f.ManagerID != u.ID {
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, "Анкета недоступна. Откройте заново: «📝 Анкета»."))
		return
	}

	switch st.State {
	case dialog.StateFormForward1:
		b.captureForward(ctx, chatID, msg, st.Payload, f, 1)
	case dialog.StateFormForward2:
		b.captureForward(ctx, chatID, msg, st.Payload, f, 2)
	case dialog.StateFormFwdField:
		b.fillForwardField(ctx, chatID, msg, st.Payload, f)
	case dialog.StateFormPhone:
		b.capturePhone(ctx, chatID, msg, st.Payload, f)
	case dialog.StateFormPassword:
		pass := strings.TrimSpace(msg.Text)
		if pass == "" {
			b.send(tgbotapi.NewMessage(chatID, "Пароль не может быть пустым. Введите ещё раз."))
			return
		}
		if err := b.forms.SetPassword(ctx, f.ID, pass); err != nil {
			b.replyError(chatID, Internal("save password", err))
			return
		}
		b.advanceForm(ctx, chatID, f.ID, st.Payload)
	case dialog.StateFormScreens:
		b.captureScreen(ctx, chatID, msg, st.Payload, f)
	case dialog.StateFormComment:
		t := strings.TrimSpace(msg.Text)
		if t == "" {
			b.send(tgbotapi.NewMessage(chatID, "Введите комментарий или «-», чтобы пропустить."))
			return
		}
		if t != "-" {
			if err := b.forms.SetComment(ctx, f.ID, t); err != nil {
				b.replyError(chatID, Internal("save comment", err))
				return
			}
		}
		f2, err := b.forms.Get(ctx, f.ID)
		if err != nil || f2 == nil {
			b.replyError(chatID, Internal("form reload", err))
			return
		}
		b.askStep(ctx, chatID, f2, forms.StepConfirm, st.Payload)
	default:
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки под сообщением."))
	}
}

// contactFromMessage снимает контакт с пересланного сообщения, визитки
// или текста вида @username.
func contactFromMessage(msg *tgbotapi.Message) *forms.ForwardContact {
	if msg.ForwardFrom != nil {
		return &forms.ForwardContact{
			Username:    msg.ForwardFrom.UserName,
			DisplayName: strings.TrimSpace(msg.ForwardFrom.FirstName + " " + msg.ForwardFrom.LastName),
			PlatformID:  msg.ForwardFrom.ID,
		}
	}
	// профиль скрыт настройками приватности — остаётся только имя
	if msg.ForwardSenderName != "" {
		return &forms.ForwardContact{DisplayName: msg.ForwardSenderName}
	}
	if msg.Contact != nil {
		return &forms.ForwardContact{
			Phone:       msg.Contact.PhoneNumber,
			DisplayName: strings.TrimSpace(msg.Contact.FirstName + " " + msg.Contact.LastName),
			PlatformID:  msg.Contact.UserID,
		}
	}
	t := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(t, "@") && len(t) > 1 {
		return &forms.ForwardContact{Username: strings.TrimPrefix(t, "@")}
	}
	return nil
}

func (b *Bot) captureForward(ctx context.Context, chatID int64, msg *tgbotapi.Message, p dialog.Payload, f *forms.Form, slot int) {
	c := contactFromMessage(msg)
	if c == nil {
		b.send(tgbotapi.NewMessage(chatID,
			"Не удалось распознать контакт. Перешлите сообщение либо отправьте @username."))
		return
	}
	b.handleCapturedContact(ctx, chatID, p, f, slot, c)
}

// handleCapturedContact сохраняет полный контакт либо уходит в отступление
// за недостающими полями. Прерванный шаг кладётся на стек возвратов.
func (b *Bot) handleCapturedContact(ctx context.Context, chatID int64, p dialog.Payload, f *forms.Form, slot int, c *forms.ForwardContact) {
	missing := c.MissingFields()
	if len(missing) == 0 {
		b.saveForward(ctx, chatID, p, f, slot, c)
		return
	}

	dialog.PushContinuation(p, dialog.Continuation{
		State:   slotState(slot),
		Payload: flowSnapshot(p),
	})
	p["fwd_username"] = c.Username
	p["fwd_phone"] = c.Phone
	p["fwd_name"] = c.DisplayName
	p["fwd_pid"] = float64(c.PlatformID)
	p["fwd_missing"] = missing
	if err := b.states.Set(ctx, chatID, dialog.StateFormFwdField, p); err != nil {
		b.replyError(chatID, Internal("dialog", err))
		return
	}
	b.send(tgbotapi.NewMessage(chatID, fwdFieldPrompt(missing[0])))
}

func slotState(slot int) dialog.State {
	if slot == 2 {
		return dialog.StateFormForward2
	}
	return dialog.StateFormForward1
}

func slotFromState(s dialog.State) int {
	if s == dialog.StateFormForward2 {
		return 2
	}
	return 1
}

// flowSnapshot — часть payload, которая переживает отступление.
func flowSnapshot(p dialog.Payload) dialog.Payload {
	s := dialog.Payload{}
	if v, ok := p["form_id"]; ok {
		s["form_id"] = v
	}
	if dialog.GetBool(p, "edit") {
		s["edit"] = true
	}
	return s
}

func resumePayload(cont dialog.Continuation, formID int64) dialog.Payload {
	p := cont.Payload
	if p == nil {
		p = dialog.Payload{}
	}
	p["form_id"] = float64(formID)
	return p
}

func fwdFieldPrompt(field string) string {
	switch field {
	case "username":
		return "В пересылке нет username. Введите @username клиента (или «-», если его нет):"
	case "phone":
		return "Введите номер телефона клиента (или «-», если неизвестен):"
	case "name":
		return "Введите имя клиента (или «-»):"
	}
	return "Введите значение:"
}

// fillForwardField дозаполняет контакт по одному полю за сообщение.
// Свежая пересылка или визитка посреди дозапроса перезапускает захват.
func (b *Bot) fillForwardField(ctx context.Context, chatID int64, msg *tgbotapi.Message, p dialog.Payload, f *forms.Form) {
	if msg.ForwardFrom != nil || msg.ForwardSenderName != "" || msg.Contact != nil {
		if c := contactFromMessage(msg); c != nil {
			cont, ok := dialog.PopContinuation(p)
			if !ok {
				b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте анкету заново: «📝 Анкета».")
				return
			}
			b.handleCapturedContact(ctx, chatID, resumePayload(cont, f.ID), f, slotFromState(cont.State), c)
			return
		}
	}

	queue := dialog.GetStrings(p, "fwd_missing")
	if len(queue) == 0 {
		// контекст отступления потерян — вернёмся к прерванному шагу
		cont, ok := dialog.PopContinuation(p)
		if !ok {
			b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте анкету заново: «📝 Анкета».")
			return
		}
		step := forms.StepForwardPrimary
		if slotFromState(cont.State) == 2 {
			step = forms.StepForwardSecondary
		}
		b.askStep(ctx, chatID, f, step, resumePayload(cont, f.ID))
		return
	}

	v := strings.TrimSpace(msg.Text)
	if v == "" {
		b.send(tgbotapi.NewMessage(chatID, fwdFieldPrompt(queue[0])))
		return
	}
	// «.» — привычная метка «нет данных» у части менеджеров, оставляем рабочей.
	if v == "-" || v == "." {
		v = ""
	}
	switch queue[0] {
	case "username":
		p["fwd_username"] = strings.TrimPrefix(v, "@")
	case "phone":
		p["fwd_phone"] = v
	case "name":
		p["fwd_name"] = v
	}

	queue = queue[1:]
	if len(queue) > 0 {
		p["fwd_missing"] = queue
		if err := b.states.Set(ctx, chatID, dialog.StateFormFwdField, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, fwdFieldPrompt(queue[0])))
		return
	}

	cont, ok := dialog.PopContinuation(p)
	if !ok {
		b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте анкету заново: «📝 Анкета».")
		return
	}
	username, _ := dialog.GetString(p, "fwd_username")
	phone, _ := dialog.GetString(p, "fwd_phone")
	name, _ := dialog.GetString(p, "fwd_name")
	pid, _ := dialog.GetInt64(p, "fwd_pid")
	c := &forms.ForwardContact{Username: username, Phone: phone, DisplayName: name, PlatformID: pid}
	b.saveForward(ctx, chatID, resumePayload(cont, f.ID), f, slotFromState(cont.State), c)
}

func (b *Bot) saveForward(ctx context.Context, chatID int64, p dialog.Payload, f *forms.Form, slot int, c *forms.ForwardContact) {
	var err error
	if slot == 1 {
		err = b.forms.SetForwardPrimary(ctx, f.ID, c)
	} else {
		err = b.forms.SetForwardSecondary(ctx, f.ID, c)
	}
	if err != nil {
		b.replyError(chatID, Internal("save contact", err))
		return
	}
	b.send(tgbotapi.NewMessage(chatID, "Контакт записан: "+c.Label()))
	b.advanceForm(ctx, chatID, f.ID, p)
}

func clearForwardDraft(p dialog.Payload) {
	delete(p, "fwd_username")
	delete(p, "fwd_phone")
	delete(p, "fwd_name")
	delete(p, "fwd_pid")
	delete(p, "fwd_missing")
	dialog.ClearContinuations(p)
}

func (b *Bot) resetToMenu(ctx context.Context, chatID int64, text string) {
	if err := b.states.Reset(ctx, chatID); err != nil {
		b.log.Error("dialog reset", "err", err)
	}
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) capturePhone(ctx context.Context, chatID int64, msg *tgbotapi.Message, p dialog.Payload, f *forms.Form) {
	raw := strings.TrimSpace(msg.Text)
	if !forms.ValidPhone(raw) {
		b.replyError(chatID, Validation("Не похоже на номер телефона. Пример: +380 99 123 45 67."))
		return
	}
	norm, _ := forms.NormalizePhone(raw)

	// мягкое предупреждение: тот же номер в других анкетах (банк может отличаться)
	matches, err := b.forms.PhoneMatches(ctx, norm, f.ID)
	if err != nil {
		b.log.Error("phone match lookup", "err", err)
	}
	if len(matches) > 0 {
		var sb strings.Builder
		sb.WriteString("⚠️ Номер уже встречается:\n")
		for i, m := range matches {
			if i == 3 {
				fmt.Fprintf(&sb, "…и ещё %d\n", len(matches)-3)
				break
			}
			fmt.Fprintf(&sb, "• анкета #%d — %s", m.FormID, m.ManagerTag)
			if m.BankName != "" {
				fmt.Fprintf(&sb, " (%s)", m.BankName)
			}
			sb.WriteByte('\n')
		}
		sb.WriteString("Продолжаем, но банк должен отличаться.")
		b.send(tgbotapi.NewMessage(chatID, sb.String()))
	}

	if err := b.forms.SetPhone(ctx, f.ID, norm); err != nil {
		b.replyError(chatID, Internal("save phone", err))
		return
	}
	b.advanceForm(ctx, chatID, f.ID, p)
}

// captureScreen принимает вложения шага скриншотов. Кадры альбома
// подтверждаются одним сообщением после окна тишины.
func (b *Bot) captureScreen(ctx context.Context, chatID int64, msg *tgbotapi.Message, p dialog.Payload, f *forms.Form) {
	ref, ok := mediaFromMessage(msg)
	if !ok {
		b.send(tgbotapi.NewMessage(chatID, "Пришлите фото, видео или документ."))
		return
	}
	if len(f.Screenshots) >= maxFreeScreens {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Не больше %d вложений.", maxFreeScreens)))
		return
	}

	screens := append(f.Screenshots, ref)
	if err := b.forms.SetScreenshots(ctx, f.ID, screens); err != nil {
		b.replyError(chatID, Internal("save screenshots", err))
		return
	}

	required := b.requiredScreensFor(ctx, f)
	count := len(screens)
	done := required > 0 && count >= required

	ack := func() {
		switch {
		case done:
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Принято: %d из %d ✅", count, required)))
			b.advanceForm(ctx, chatID, f.ID, p)
		case required > 0:
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Принято: %d из %d.", count, required)))
		default:
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Принято: %d. Завершите кнопкой «Готово».", count)))
		}
	}
	if msg.MediaGroupID != "" {
		b.albums.Observe(chatID, msg.MediaGroupID, ack)
		return
	}
	ack()
}

/*** Callbacks ***/

func (b *Bot) cbForm(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) < 2 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("dialog state", err))
		return
	}
	fid, ok := dialog.GetInt64(st.Payload, "form_id")
	if !ok {
		_ = b.answerCallback(cb, "Неактуально", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Диалог устарел. Откройте анкету заново: «📝 Анкета».")
		return
	}
	f, err := b.forms.Get(ctx, fid)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("form load", err))
		return
	}
	if f == nil || u == nil || f.ManagerID != u.ID {
		_ = b.answerCallback(cb, "Неактуально", false)
		return
	}

	switch parts[1] {
	case "traffic":
		if len(parts) < 3 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		t := forms.Traffic(parts[2])
		if t != forms.TrafficDirect && t != forms.TrafficReferral {
			_ = b.answerCallback(cb, "", false)
			return
		}
		if err := b.forms.SetTraffic(ctx, f.ID, t); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("save traffic", err))
			return
		}
		_ = b.answerCallback(cb, forms.TrafficTitle(t), false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Трафик: "+forms.TrafficTitle(t))
		b.advanceForm(ctx, chatID, f.ID, st.Payload)

	case "bank":
		b.pickBank(ctx, cb, st.Payload, f, parts)

	case "screens":
		if len(parts) < 3 || parts[2] != "done" {
			_ = b.answerCallback(cb, "", false)
			return
		}
		if len(f.Screenshots) == 0 {
			_ = b.answerCallback(cb, "Нет ни одного вложения", true)
			return
		}
		_ = b.answerCallback(cb, "Готово", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, fmt.Sprintf("Скриншоты: %d шт.", len(f.Screenshots)))
		b.advanceForm(ctx, chatID, f.ID, st.Payload)

	case "confirm":
		if len(parts) < 3 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		switch parts[2] {
		case "submit":
			b.submitForm(ctx, cb, st.Payload, f)
		case "edit":
			_ = b.answerCallback(cb, "", false)
			b.showEditMenu(ctx, chatID, cb.Message.MessageID, st.Payload, f)
		case "cancel":
			if err := b.forms.Delete(ctx, f.ID); err != nil {
				_ = b.answerCallback(cb, "", false)
				b.replyError(chatID, Internal("form delete", err))
				return
			}
			_ = b.states.Reset(ctx, chatID)
			_ = b.answerCallback(cb, "Удалена", false)
			b.editTextAndClear(chatID, cb.Message.MessageID, fmt.Sprintf("Анкета #%d удалена.", f.ID))
		}

	case "edit":
		b.pickEditField(ctx, cb, st.Payload, f, parts)

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

// pickBank — выбор банка с жёсткой проверкой дубля телефон+банк.
func (b *Bot) pickBank(ctx context.Context, cb *tgbotapi.CallbackQuery, p dialog.Payload, f *forms.Form, parts []string) {
	chatID := cb.Message.Chat.ID
	if len(parts) < 3 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	bankID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		return
	}
	bk, err := b.banks.Get(ctx, bankID)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("bank load", err))
		return
	}
	if bk == nil {
		_ = b.answerCallback(cb, "Банк не найден", true)
		return
	}

	conflict, err := b.forms.FindConflict(ctx, f.Phone, bk.ID, bk.Name, f.ID)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("duplicate check", err))
		return
	}
	if conflict != nil {
		b.reportDuplicate(ctx, f, conflict, bk.Name)
		_ = b.answerCallback(cb, "Дубль!", true)
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"❌ Номер %s уже зарегистрирован в «%s» — анкета #%d (%s). Выберите другой банк.",
			f.Phone, bk.Name, conflict.FormID, conflict.ManagerTag)))
		return
	}

	if err := b.forms.SetBank(ctx, f.ID, bk.ID, bk.Name); err != nil {
		if errors.Is(err, forms.ErrDuplicate) {
			_ = b.answerCallback(cb, "Дубль!", true)
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
				"❌ Номер %s уже зарегистрирован в «%s». Выберите другой банк.", f.Phone, bk.Name)))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("save bank", err))
		return
	}
	_ = b.answerCallback(cb, bk.Name, false)
	b.editTextAndClear(chatID, cb.Message.MessageID, "Банк: "+bk.Name)
	b.advanceForm(ctx, chatID, f.ID, p)
}

// reportDuplicate фиксирует попытку дубля и уведомляет тимлидов источника.
func (b *Bot) reportDuplicate(ctx context.Context, f *forms.Form, c *forms.Conflict, bankName string) {
	metrics.DuplicatesDetected.Inc()
	rep := duplicates.Report{
		Phone:              f.Phone,
		BankID:             c.BankID,
		BankName:           bankName,
		ExistingFormID:     c.FormID,
		ExistingManagerID:  c.ManagerID,
		AttemptedManagerID: f.ManagerID,
	}
	if err := b.dups.Create(ctx, rep); err != nil {
		b.log.Error("duplicate report save", "err", err)
	}

	attacker := ""
	if u, err := b.users.GetByID(ctx, f.ManagerID); err == nil && u != nil {
		attacker = u.Tag()
	}
	text := fmt.Sprintf("‼️ Попытка дубля: %s в «%s».\nЗанято анкетой #%d (%s), повторно заводил %s.",
		f.Phone, bankName, c.FormID, c.ManagerTag, attacker)
	leads, err := b.users.ListTeamLeads(ctx, f.Source)
	if err != nil {
		b.log.Error("team leads list", "err", err)
		return
	}
	for _, tl := range leads {
		b.send(tgbotapi.NewMessage(tl.TgID, text))
	}
}

// submitForm — отправка на проверку; перед ней дубль-проверка повторяется.
func (b *Bot) submitForm(ctx context.Context, cb *tgbotapi.CallbackQuery, p dialog.Payload, f *forms.Form) {
	chatID := cb.Message.Chat.ID

	if f.Phone != "" && (f.BankID != 0 || f.BankName != "") {
		conflict, err := b.forms.FindConflict(ctx, f.Phone, f.BankID, f.BankName, f.ID)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("duplicate check", err))
			return
		}
		if conflict != nil {
			b.reportDuplicate(ctx, f, conflict, f.BankName)
			_ = b.answerCallback(cb, "Дубль!", true)
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
				"❌ Пара %s + «%s» уже занята анкетой #%d (%s). Поменяйте банк и отправьте снова.",
				f.Phone, f.BankName, conflict.FormID, conflict.ManagerTag)))
			p["edit"] = true
			b.askStep(ctx, chatID, f, forms.StepBank, p)
			return
		}
	}

	sent, err := b.forms.Submit(ctx, f.ID)
	if err != nil {
		if errors.Is(err, forms.ErrNotReady) {
			_ = b.answerCallback(cb, "Анкета не готова", true)
			b.advanceForm(ctx, chatID, f.ID, dialog.Payload{"form_id": float64(f.ID)})
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("form submit", err))
		return
	}
	metrics.FormsSubmitted.Inc()

	_ = b.states.Reset(ctx, chatID)
	_ = b.answerCallback(cb, "Отправлена", false)
	b.editTextAndClear(chatID, cb.Message.MessageID, fmt.Sprintf("Анкета #%d отправлена на проверку ✅", sent.ID))
	b.notifyTeamLeadsAboutForm(ctx, sent)
}

func (b *Bot) notifyTeamLeadsAboutForm(ctx context.Context, f *forms.Form) {
	tag := ""
	if u, err := b.users.GetByID(ctx, f.ManagerID); err == nil && u != nil {
		tag = u.Tag()
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Открыть", fmt.Sprintf("rev:open:%d", f.ID)),
		),
	)
	leads, err := b.users.ListTeamLeads(ctx, f.Source)
	if err != nil {
		b.log.Error("team leads list", "err", err)
		return
	}
	for _, tl := range leads {
		m := tgbotapi.NewMessage(tl.TgID,
			fmt.Sprintf("🆕 Анкета #%d от %s на проверке (%s).", f.ID, tag, f.Source.Title()))
		m.ReplyMarkup = kb
		b.send(m)
	}
}

/*** Правка по полям ***/

func formEditKeyboard(f *forms.Form) tgbotapi.InlineKeyboardMarkup {
	row := func(title, data string) []tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(title, data))
	}
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if f.Source == users.SourceFB {
		rows = append(rows, row("Трафик", "form:edit:traffic"))
		rows = append(rows, row("Клиент", "form:edit:fwd1"))
		if f.TrafficType == forms.TrafficReferral {
			rows = append(rows, row("Реферал", "form:edit:fwd2"))
		}
	}
	rows = append(rows,
		row("Телефон", "form:edit:phone"),
		row("Банк", "form:edit:bank"),
		row("Пароль", "form:edit:password"),
		row("Скриншоты", "form:edit:screens"),
		row("Комментарий", "form:edit:comment"),
		row("↩️ К подтверждению", "form:edit:back"),
	)
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (b *Bot) showEditMenu(ctx context.Context, chatID int64, messageID int, p dialog.Payload, f *forms.Form) {
	if err := b.states.Set(ctx, chatID, dialog.StateFormEditMenu, p); err != nil {
		b.replyError(chatID, Internal("dialog", err))
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		fmt.Sprintf("Что исправить в анкете #%d?", f.ID), formEditKeyboard(f))
	b.send(edit)
}

func (b *Bot) pickEditField(ctx context.Context, cb *tgbotapi.CallbackQuery, p dialog.Payload, f *forms.Form, parts []string) {
	chatID := cb.Message.Chat.ID
	if len(parts) < 3 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	if !forms.CanEdit(f) {
		_ = b.answerCallback(cb, "Анкета уже подтверждена", true)
		return
	}
	_ = b.answerCallback(cb, "", false)

	p["edit"] = true
	switch parts[2] {
	case "traffic":
		b.editTextAndClear(chatID, cb.Message.MessageID, "Правка трафика.")
		b.askStep(ctx, chatID, f, forms.StepTraffic, p)
	case "fwd1":
		b.editTextAndClear(chatID, cb.Message.MessageID, "Правка контакта клиента.")
		b.askStep(ctx, chatID, f, forms.StepForwardPrimary, p)
	case "fwd2":
		b.editTextAndClear(chatID, cb.Message.MessageID, "Правка контакта реферала.")
		b.askStep(ctx, chatID, f, forms.StepForwardSecondary, p)
	case "phone":
		b.editTextAndClear(chatID, cb.Message.MessageID, "Правка телефона.")
		b.askStep(ctx, chatID, f, forms.StepPhone, p)
	case "bank":
		b.editTextAndClear(chatID, cb.Message.MessageID, "Правка банка.")
		b.askStep(ctx, chatID, f, forms.StepBank, p)
	case "password":
		b.editTextAndClear(chatID, cb.Message.MessageID, "Правка пароля.")
		b.askStep(ctx, chatID, f, forms.StepPassword, p)
	case "screens":
		// пересбор с нуля: старый набор очищается
		if err := b.forms.SetScreenshots(ctx, f.ID, nil); err != nil {
			b.replyError(chatID, Internal("reset screenshots", err))
			return
		}
		f.Screenshots = nil
		b.editTextAndClear(chatID, cb.Message.MessageID, "Пересбор скриншотов.")
		b.askStep(ctx, chatID, f, forms.StepScreens, p)
	case "comment":
		b.editTextAndClear(chatID, cb.Message.MessageID, "Правка комментария.")
		b.askStep(ctx, chatID, f, forms.StepComment, p)
	case "back":
		delete(p, "edit")
		b.editTextAndClear(chatID, cb.Message.MessageID, "Возврат к подтверждению.")
		b.askStep(ctx, chatID, f, forms.StepConfirm, p)
	default:
		delete(p, "edit")
	}
}
