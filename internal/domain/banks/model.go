package banks

import (
	"time"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

type Bank struct {
	ID                int64
	Name              string
	InstructionTG     string
	InstructionFB     string
	RequiredScreensTG int
	RequiredScreensFB int
	CreatedAt         time.Time
}

func (b *Bank) Instruction(src users.Source) string {
	if src == users.SourceFB {
		return b.InstructionFB
	}
	return b.InstructionTG
}

// RequiredScreens — сколько скринов обязан приложить менеджер источника.
// 0 означает свободный режим (минимум один, максимум по общему лимиту).
func (b *Bank) RequiredScreens(src users.Source) int {
	if src == users.SourceFB {
		return b.RequiredScreensFB
	}
	return b.RequiredScreensTG
}

func (b *Bank) ConfiguredFor(src users.Source) bool {
	return b.Instruction(src) != "" || b.RequiredScreens(src) > 0
}

// AvailableFor отбирает банки, настроенные под источник. Пока ни один банк
// не настроен, менеджерам предлагается весь справочник.
func AvailableFor(all []Bank, src users.Source) []Bank {
	var out []Bank
	for _, b := range all {
		if b.ConfiguredFor(src) {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}
