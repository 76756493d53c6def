package forms

import (
	"strings"
	"unicode"
)

// stripPhone убирает из номера разделители: пробелы, дефисы, скобки.
func stripPhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch r {
		case ' ', '-', '(', ')', '\u00a0': // NBSP из скопированных номеров
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidPhone — 9–13 цифр, допускается ведущий «+».
func ValidPhone(raw string) bool {
	s := strings.TrimPrefix(stripPhone(raw), "+")
	if len(s) < 9 || len(s) > 13 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizePhone приводит номер к виду «+380 991234567»: код страны,
// пробел и девять значащих цифр (хвост номера).
func NormalizePhone(raw string) (string, bool) {
	if !ValidPhone(raw) {
		return "", false
	}
	s := strings.TrimPrefix(stripPhone(raw), "+")
	return "+380 " + s[len(s)-9:], true
}

// NormalizeCard оставляет только цифры; валидна карта из 12–19 цифр.
func NormalizeCard(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			continue
		default:
			return "", false
		}
	}
	s := b.String()
	if len(s) < 12 || len(s) > 19 {
		return "", false
	}
	return s, true
}

// BankKey строит ключ сверки названия банка:
//  1. если в названии есть кавычки («…» или "…") — берём текст в кавычках;
//  2. иначе при наличии дефиса — кусок до первого дефиса;
//  3. иначе — ведущую буквенную часть названия.
//
// Ключ приводится к нижнему регистру. «ПУМБ» и «пумб» совпадают, «Мопо» и
// «мопо» тоже — опечатки в регистре дублей не прячут.
func BankKey(name string) string {
	s := strings.TrimSpace(name)

	if core, ok := quoted(s); ok {
		return strings.ToLower(strings.TrimSpace(core))
	}
	if i := strings.IndexRune(s, '-'); i >= 0 {
		return strings.ToLower(strings.TrimSpace(s[:i]))
	}

	var b strings.Builder
	for _, r := range s {
		if !unicode.IsLetter(r) {
			break
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func quoted(s string) (string, bool) {
	pairs := [][2]rune{{'«', '»'}, {'"', '"'}}
	for _, p := range pairs {
		open := strings.IndexRune(s, p[0])
		if open < 0 {
			continue
		}
		rest := s[open+len(string(p[0])):]
		close := strings.IndexRune(rest, p[1])
		if close <= 0 {
			continue
		}
		return rest[:close], true
	}
	return "", false
}

// SameBank — правило сверки банков двух анкет: при наличии явных id
// сравниваем их, иначе откатываемся к ключам названий.
func SameBank(aID int64, aName string, bID int64, bName string) bool {
	if aID != 0 && bID != 0 {
		return aID == bID
	}
	ka, kb := BankKey(aName), BankKey(bName)
	return ka != "" && ka == kb
}
