package logic

import (
	"errors"
	"math"
	"testing"
)

// recorder is a Keyboard that records every call as "op:name".
type recorder struct {
	calls []string
	err   error
}

func (r *recorder) record(op, name string) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, op+":"+name)
	return nil
}

func (r *recorder) KeyDown(name string) error     { return r.record("down", name) }
func (r *recorder) KeyUp(name string) error       { return r.record("up", name) }
func (r *recorder) Press(name string) error       { return r.record("press", name) }
func (r *recorder) TypeLiteral(text string) error { return r.record("type", text) }

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

// validKeys accepts a small fixed vocabulary.
func validKeys(name string) bool {
	switch name {
	case "w", "a", "s", "d", "space", "shift":
		return true
	}
	return false
}

func mustRule(t *testing.T, cfg RuleConfig) *Rule {
	t.Helper()
	r, err := NewRule(cfg, validKeys)
	if err != nil {
		t.Fatalf("NewRule(%+v): %v", cfg, err)
	}
	return r
}

func TestNewRuleDefaultsToHold(t *testing.T) {
	r := mustRule(t, RuleConfig{Key: "w", MinSpeed: 1, MaxSpeed: Unbounded})
	if r.Mode() != ModeHold {
		t.Errorf("mode: got %q, want %q", r.Mode(), ModeHold)
	}
	if r.Active() {
		t.Error("new rule should be inactive")
	}
}

func TestNewRuleValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RuleConfig
		wantErr bool
	}{
		{"valid hold", RuleConfig{Key: "w", MinSpeed: 0, MaxSpeed: 10, Mode: ModeHold}, false},
		{"valid toggle", RuleConfig{Key: "shift", MinSpeed: 5, MaxSpeed: Unbounded, Mode: ModeToggle}, false},
		{"typewrite skips key check", RuleConfig{Key: "hello world", MinSpeed: 0, MaxSpeed: 1, Mode: ModeTypewrite}, false},
		{"equal bounds", RuleConfig{Key: "a", MinSpeed: 3, MaxSpeed: 3}, false},
		{"invalid key for hold", RuleConfig{Key: "notakey", MinSpeed: 0, MaxSpeed: 1, Mode: ModeHold}, true},
		{"invalid key for toggle", RuleConfig{Key: "notakey", MinSpeed: 0, MaxSpeed: 1, Mode: ModeToggle}, true},
		{"unknown mode", RuleConfig{Key: "w", MinSpeed: 0, MaxSpeed: 1, Mode: "SOMETIMES_KEY"}, true},
		{"empty key", RuleConfig{Key: "", MinSpeed: 0, MaxSpeed: 1, Mode: ModeTypewrite}, true},
		{"min above max", RuleConfig{Key: "w", MinSpeed: 10, MaxSpeed: 5}, true},
		{"nan min", RuleConfig{Key: "w", MinSpeed: math.NaN(), MaxSpeed: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRule(tt.cfg, validKeys)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidKeyConfig) {
					t.Errorf("expected ErrInvalidKeyConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewRuleNilValidator(t *testing.T) {
	if _, err := NewRule(RuleConfig{Key: "w", MaxSpeed: 1}, nil); !errors.Is(err, ErrInvalidKeyConfig) {
		t.Errorf("expected ErrInvalidKeyConfig with nil validator, got %v", err)
	}
	if _, err := NewRule(RuleConfig{Key: "hi", MaxSpeed: 1, Mode: ModeTypewrite}, nil); err != nil {
		t.Errorf("typewrite rule should not need a validator, got %v", err)
	}
}

func TestInRange(t *testing.T) {
	r := mustRule(t, RuleConfig{Key: "w", MinSpeed: 5, MaxSpeed: 10})

	tests := []struct {
		speed float64
		want  bool
	}{
		{4.99, false},
		{5, true},
		{7.5, true},
		{10, true},
		{10.01, false},
		{-1, false},
	}
	for _, tt := range tests {
		if got := r.InRange(tt.speed); got != tt.want {
			t.Errorf("InRange(%v): got %v, want %v", tt.speed, got, tt.want)
		}
	}
}

func TestInRangeUnbounded(t *testing.T) {
	r := mustRule(t, RuleConfig{Key: "w", MinSpeed: 2, MaxSpeed: Unbounded})
	for _, s := range []float64{2, 100, math.MaxFloat64} {
		if !r.InRange(s) {
			t.Errorf("InRange(%v): got false, want true", s)
		}
	}
	if r.InRange(1.9) {
		t.Error("InRange(1.9): got true, want false")
	}
}

func TestHoldActivateIsIdempotent(t *testing.T) {
	r := mustRule(t, RuleConfig{Key: "w", MinSpeed: 0, MaxSpeed: Unbounded, Mode: ModeHold})
	kb := &recorder{}

	a1, err := r.Activate(kb)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := r.Activate(kb)
	if err != nil {
		t.Fatal(err)
	}

	if a1 != ActionKeyDown || a2 != ActionNone {
		t.Errorf("actions: got %q, %q; want KEY_DOWN, none", a1, a2)
	}
	if n := kb.count("down:w"); n != 1 {
		t.Errorf("key down count: got %d, want 1", n)
	}

	r.Deactivate(kb)
	r.Deactivate(kb)
	if n := kb.count("up:w"); n != 1 {
		t.Errorf("key up count: got %d, want 1", n)
	}
	if len(kb.calls) != 2 {
		t.Errorf("total calls: got %v, want 2", kb.calls)
	}
	if r.Active() {
		t.Error("rule should be inactive after deactivate")
	}
}

func TestToggleActivateDeactivate(t *testing.T) {
	r := mustRule(t, RuleConfig{Key: "shift", MinSpeed: 0, MaxSpeed: 5, Mode: ModeToggle})
	kb := &recorder{}

	r.Activate(kb)
	r.Activate(kb)
	if n := kb.count("press:shift"); n != 1 {
		t.Fatalf("press count after two activates: got %d, want 1", n)
	}
	if !r.Active() {
		t.Error("toggle rule should be active")
	}

	a, err := r.Deactivate(kb)
	if err != nil {
		t.Fatal(err)
	}
	if a != ActionPress {
		t.Errorf("deactivate action: got %q, want PRESS", a)
	}
	if n := kb.count("press:shift"); n != 2 {
		t.Errorf("press count after deactivate: got %d, want 2", n)
	}

	r.Deactivate(kb)
	if len(kb.calls) != 2 {
		t.Errorf("deactivating an untoggled rule emitted calls: %v", kb.calls)
	}
	if kb.count("down:shift") != 0 || kb.count("up:shift") != 0 {
		t.Errorf("toggle rule must only press, got %v", kb.calls)
	}
}

func TestTypewriteRepeatsEveryActivate(t *testing.T) {
	r := mustRule(t, RuleConfig{Key: "go!", MinSpeed: 0, MaxSpeed: Unbounded, Mode: ModeTypewrite})
	kb := &recorder{}

	const n = 5
	for i := 0; i < n; i++ {
		a, err := r.Activate(kb)
		if err != nil {
			t.Fatal(err)
		}
		if a != ActionType {
			t.Errorf("activate %d: got %q, want TYPE", i, a)
		}
	}
	if got := kb.count("type:go!"); got != n {
		t.Errorf("type count: got %d, want %d", got, n)
	}

	for i := 0; i < 3; i++ {
		if a, _ := r.Deactivate(kb); a != ActionNone {
			t.Errorf("deactivate %d: got %q, want none", i, a)
		}
	}
	if len(kb.calls) != n {
		t.Errorf("deactivate emitted calls: %v", kb.calls)
	}
	if r.Active() {
		t.Error("typewrite rule should never be active")
	}
}

func TestKeyboardFailureLeavesStateUnchanged(t *testing.T) {
	r := mustRule(t, RuleConfig{Key: "w", MinSpeed: 0, MaxSpeed: Unbounded})
	kb := &recorder{err: errors.New("uinput gone")}

	if _, err := r.Activate(kb); err == nil {
		t.Fatal("expected error from failing keyboard")
	}
	if r.Active() {
		t.Error("rule must not be marked held when key down failed")
	}

	kb.err = nil
	if a, _ := r.Activate(kb); a != ActionKeyDown {
		t.Errorf("retry: got %q, want KEY_DOWN", a)
	}

	kb.err = errors.New("uinput gone")
	if _, err := r.Deactivate(kb); err == nil {
		t.Fatal("expected error from failing keyboard")
	}
	if !r.Active() {
		t.Error("rule must stay held when key up failed")
	}
}
