package bot

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sethvargo/go-retry"

	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
)

/*** HELPERS ***/

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) error {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	_, err := b.api.Request(resp)
	return err
}

// sendReturning шлёт сообщение с ретраем на сетевые сбои и rate limit
// и запоминает id отправленного в личку (для ночной чистки).
func (b *Bot) sendReturning(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	var out tgbotapi.Message
	backoff := retry.WithMaxRetries(2, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(context.Background(), backoff, func(_ context.Context) error {
		m, err := b.api.Send(msg)
		if err != nil {
			if isRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return out, err
	}
	b.trackSent(out)
	return out, nil
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.sendReturning(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

func (b *Bot) trackSent(m tgbotapi.Message) {
	if m.Chat == nil || m.Chat.ID <= 0 || m.MessageID == 0 {
		return
	}
	if err := b.users.TrackMessage(context.Background(), m.Chat.ID, int64(m.MessageID)); err != nil {
		b.log.Debug("track message failed", "chat_id", m.Chat.ID, "err", err)
	}
}

func isRetryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter > 0 || apiErr.Code >= 500
	}
	// не-APIшные ошибки — сеть, таймауты
	return true
}

func (b *Bot) editTextAndClear(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID, messageID, text,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	b.send(edit)
}

// sendOrEdit правит исходное сообщение, когда его id известен (нажатие
// кнопки), и шлёт новое, когда пришли из текстового ввода (messageID == 0).
func (b *Bot) sendOrEdit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		if kb == nil {
			b.editTextAndClear(chatID, messageID, text)
			return
		}
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *kb))
		return
	}
	m := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		m.ReplyMarkup = *kb
	}
	b.send(m)
}

// sendMediaRefs пересылает сохранённые вложения «kind:file_id»:
// фото и видео — альбомами по 10, документы — по одному.
func (b *Bot) sendMediaRefs(chatID int64, refs []string) {
	var album []interface{}
	flush := func() {
		switch len(album) {
		case 0:
			return
		case 1:
			// одиночное вложение медиагруппой Telegram не примет
			switch m := album[0].(type) {
			case tgbotapi.InputMediaPhoto:
				b.send(tgbotapi.NewPhoto(chatID, tgbotapi.FileID(m.Media.SendData())))
			case tgbotapi.InputMediaVideo:
				b.send(tgbotapi.NewVideo(chatID, tgbotapi.FileID(m.Media.SendData())))
			}
		default:
			group := tgbotapi.NewMediaGroup(chatID, album)
			if _, err := b.api.SendMediaGroup(group); err != nil {
				b.log.Error("media group send failed", "err", err)
			}
		}
		album = nil
	}

	for _, ref := range refs {
		kind, fileID := forms.UnpackMedia(ref)
		switch kind {
		case forms.MediaDoc:
			flush()
			b.send(tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID)))
		case forms.MediaVideo:
			album = append(album, tgbotapi.NewInputMediaVideo(tgbotapi.FileID(fileID)))
		default:
			album = append(album, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(fileID)))
		}
		if len(album) == 10 {
			flush()
		}
	}
	flush()
}

// mediaFromMessage достаёт вложение анкетного формата из сообщения.
func mediaFromMessage(msg *tgbotapi.Message) (string, bool) {
	switch {
	case len(msg.Photo) > 0:
		return forms.PackMedia(forms.MediaPhoto, msg.Photo[len(msg.Photo)-1].FileID), true
	case msg.Document != nil:
		return forms.PackMedia(forms.MediaDoc, msg.Document.FileID), true
	case msg.Video != nil:
		return forms.PackMedia(forms.MediaVideo, msg.Video.FileID), true
	}
	return "", false
}

// Бейдж активности
func badge(b bool) string {
	if b {
		return "🟢"
	}
	return "🚫"
}
