package bot

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type ErrCode string

const (
	CodeValidation   ErrCode = "validation"
	CodePrecondition ErrCode = "precondition"
	CodeInternal     ErrCode = "internal"
)

// BotError несёт и служебное описание, и текст для пользователя.
type BotError struct {
	Code        ErrCode
	Message     string
	UserMessage string
	Err         error
}

func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BotError) Unwrap() error { return e.Err }

func Validation(userMsg string) *BotError {
	return &BotError{Code: CodeValidation, Message: "validation failed", UserMessage: userMsg}
}

func Precondition(userMsg string) *BotError {
	return &BotError{Code: CodePrecondition, Message: "precondition failed", UserMessage: userMsg}
}

func Internal(msg string, err error) *BotError {
	return &BotError{Code: CodeInternal, Message: msg, Err: err}
}

// replyError показывает пользователю внятный текст и пишет подробности в лог.
func (b *Bot) replyError(chatID int64, err error) {
	if err == nil {
		return
	}
	var be *BotError
	if errors.As(err, &be) {
		if be.Code == CodeInternal {
			b.log.Error("handler error", "code", be.Code, "err", be)
		} else {
			b.log.Debug("handler error", "code", be.Code, "err", be)
		}
		text := be.UserMessage
		if text == "" {
			text = "Что-то пошло не так, попробуйте ещё раз."
		}
		b.send(tgbotapi.NewMessage(chatID, text))
		return
	}
	b.log.Error("handler error", "err", err)
	b.send(tgbotapi.NewMessage(chatID, "Что-то пошло не так, попробуйте ещё раз."))
}
