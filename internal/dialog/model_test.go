package dialog

import "testing"

func TestGetInt64(t *testing.T) {
	p := Payload{
		"from_jsonb": float64(42), // jsonb отдаёт числа как float64
		"native":     int64(7),
		"plain_int":  3,
		"text":       "12",
	}

	tests := []struct {
		name string
		key  string
		want int64
		ok   bool
	}{
		{name: "float64 from jsonb", key: "from_jsonb", want: 42, ok: true},
		{name: "int64", key: "native", want: 7, ok: true},
		{name: "int", key: "plain_int", want: 3, ok: true},
		{name: "string is not a number", key: "text", ok: false},
		{name: "missing key", key: "nope", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetInt64(p, tt.key)
			if ok != tt.ok || got != tt.want {
				t.Errorf("GetInt64(%q) = (%d, %v), want (%d, %v)", tt.key, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestGetStrings(t *testing.T) {
	p := Payload{
		"decoded": []any{"a", "b", 5, "c"}, // не-строки молча пропускаются
		"fresh":   []string{"x", "y"},
		"scalar":  "one",
	}

	if got := GetStrings(p, "decoded"); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("GetStrings(decoded) = %v, want [a b c]", got)
	}
	if got := GetStrings(p, "fresh"); len(got) != 2 || got[1] != "y" {
		t.Errorf("GetStrings(fresh) = %v, want [x y]", got)
	}
	if got := GetStrings(p, "scalar"); got != nil {
		t.Errorf("GetStrings(scalar) = %v, want nil", got)
	}
	if got := GetStrings(p, "missing"); got != nil {
		t.Errorf("GetStrings(missing) = %v, want nil", got)
	}
}

func TestContinuationStack(t *testing.T) {
	p := Payload{}

	PushContinuation(p, Continuation{State: StateFormScreens, Payload: Payload{"form_id": int64(10)}})
	PushContinuation(p, Continuation{State: StateFormFwdField})

	// Снимается в обратном порядке.
	c, ok := PopContinuation(p)
	if !ok || c.State != StateFormFwdField {
		t.Fatalf("first pop = (%v, %v), want fwd_field", c.State, ok)
	}

	c, ok = PopContinuation(p)
	if !ok || c.State != StateFormScreens {
		t.Fatalf("second pop = (%v, %v), want form:screens", c.State, ok)
	}
	if id, _ := GetInt64(c.Payload, "form_id"); id != 10 {
		t.Errorf("restored payload form_id = %d, want 10", id)
	}

	if _, ok := PopContinuation(p); ok {
		t.Error("pop from empty stack reported ok")
	}
	if _, exists := p["cont_stack"]; exists {
		t.Error("drained stack key left in payload")
	}
}

func TestPopContinuationGarbage(t *testing.T) {
	// Диалог мог пересоздаться со «старым» payload произвольной формы.
	p := Payload{"cont_stack": []any{"not a map"}}

	if _, ok := PopContinuation(p); ok {
		t.Error("garbage entry reported ok")
	}
}

func TestClearContinuations(t *testing.T) {
	p := Payload{}
	PushContinuation(p, Continuation{State: StateFormPhone})
	ClearContinuations(p)

	if _, ok := PopContinuation(p); ok {
		t.Error("pop after clear reported ok")
	}
}
