package dialog

type State string

const (
	StateIdle State = "idle"

	// Доступ
	StateAccPickRole State = "acc:pick_role"

	// Мастер анкеты
	StateFormTraffic  State = "form:traffic"
	StateFormForward1 State = "form:forward1"
	StateFormForward2 State = "form:forward2"
	StateFormFwdField State = "form:fwd_field" // дозапрос полей контакта
	StateFormPhone    State = "form:phone"
	StateFormBank     State = "form:bank"
	StateFormPassword State = "form:password"
	StateFormScreens  State = "form:screens"
	StateFormComment  State = "form:comment"
	StateFormConfirm  State = "form:confirm"
	StateFormEditMenu State = "form:edit_menu" // правка по полям

	// Смены
	StateShiftTag        State = "shift:tag" // тег менеджера при первом запуске
	StateShiftEndDialogs State = "shift:end:dialogs"
	StateShiftEndComment State = "shift:end:comment"

	// Выплаты
	StatePayCard      State = "pay:card"
	StatePayAmount    State = "pay:amount"
	StatePayMore      State = "pay:more"
	StatePayRefPhone  State = "pay:ref:phone"
	StatePayRefCard   State = "pay:ref:card"
	StatePayRefAmount State = "pay:ref:amount"

	// Пул ресурсов: менеджер
	StatePoolInvalidComment State = "pool:invalid:comment"

	// Пул ресурсов: wictory
	StateWikAddType    State = "wik:add:type"
	StateWikAddBank    State = "wik:add:bank"
	StateWikAddScreens State = "wik:add:screens"
	StateWikAddData    State = "wik:add:data"
	StateWikAddPreview State = "wik:add:preview"
	StateWikFixData    State = "wik:fix:data"
	StateWikFixScreens State = "wik:fix:screens"

	// Справочник банков (тимлид)
	StateBankAddName State = "bank:add:name"
	StateBankRename  State = "bank:rename"
	StateBankInstr   State = "bank:instr"
	StateBankScreens State = "bank:screens"

	// Проверка анкет (тимлид)
	StateTLRejectComment State = "tl:reject:comment"

	// Пользовательский период DD.MM.YYYY-DD.MM.YYYY
	StatePeriodCustom State = "period:custom"
)

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

// GetString Helper для безопасного чтения строк из payload
func GetString(p Payload, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt64 — числа приходят из JSONB как float64.
func GetInt64(p Payload, key string) (int64, bool) {
	switch v := p[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func GetBool(p Payload, key string) bool {
	b, _ := p[key].(bool)
	return b
}

// GetStrings разворачивает []any обратно в []string.
func GetStrings(p Payload, key string) []string {
	arr, ok := p[key].([]any)
	if !ok {
		if ss, ok2 := p[key].([]string); ok2 {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Continuation — точка возврата из отступления (например, дозапрос полей
// контакта посреди захвата пересылки): состояние, которое прервали, и его
// payload. Хранится стеком, чтобы вложенные отступления сворачивались в
// обратном порядке.
type Continuation struct {
	State   State
	Payload Payload
}

const contStackKey = "cont_stack"

func PushContinuation(p Payload, c Continuation) {
	stack, _ := p[contStackKey].([]any)
	entry := map[string]any{"state": string(c.State)}
	if len(c.Payload) > 0 {
		entry["payload"] = map[string]any(c.Payload)
	}
	p[contStackKey] = append(stack, entry)
}

func ClearContinuations(p Payload) {
	delete(p, contStackKey)
}

// PopContinuation снимает верхний возврат; false — стек пуст или запись
// нечитаема (диалог пересоздавался).
func PopContinuation(p Payload) (Continuation, bool) {
	stack, _ := p[contStackKey].([]any)
	if len(stack) == 0 {
		delete(p, contStackKey)
		return Continuation{}, false
	}
	last := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(p, contStackKey)
	} else {
		p[contStackKey] = stack[:len(stack)-1]
	}

	m, ok := last.(map[string]any)
	if !ok {
		return Continuation{}, false
	}
	var c Continuation
	if s, ok := m["state"].(string); ok {
		c.State = State(s)
	}
	if pm, ok := m["payload"].(map[string]any); ok {
		c.Payload = Payload(pm)
	}
	return c, c.State != ""
}
