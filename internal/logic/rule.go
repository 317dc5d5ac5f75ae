package logic

import (
	"fmt"
	"math"
)

// Rule maps a closed speed interval to a key and owns that key's activation state.
// Rules are always handled by pointer; copying one would duplicate its state.
type Rule struct {
	key      string
	minSpeed float64
	maxSpeed float64
	mode     Mode

	down    bool // ModeHold: key is currently held
	toggled bool // ModeToggle: key has been pressed on
}

// NewRule validates cfg and returns an inactive rule.
// isValidKey is consulted for every mode except ModeTypewrite, whose key is literal text.
func NewRule(cfg RuleConfig, isValidKey func(string) bool) (*Rule, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeHold
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown key type %q for key %q", ErrInvalidKeyConfig, cfg.Mode, cfg.Key)
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("%w: empty key name", ErrInvalidKeyConfig)
	}
	if mode != ModeTypewrite && (isValidKey == nil || !isValidKey(cfg.Key)) {
		return nil, fmt.Errorf("%w: invalid key %q for key type %s", ErrInvalidKeyConfig, cfg.Key, mode)
	}
	if math.IsNaN(cfg.MinSpeed) || math.IsNaN(cfg.MaxSpeed) {
		return nil, fmt.Errorf("%w: speed bounds for key %q must be numbers", ErrInvalidKeyConfig, cfg.Key)
	}
	if cfg.MinSpeed > cfg.MaxSpeed {
		return nil, fmt.Errorf("%w: min speed %g above max speed %g for key %q",
			ErrInvalidKeyConfig, cfg.MinSpeed, cfg.MaxSpeed, cfg.Key)
	}

	return &Rule{
		key:      cfg.Key,
		minSpeed: cfg.MinSpeed,
		maxSpeed: cfg.MaxSpeed,
		mode:     mode,
	}, nil
}

// Key returns the configured key name (or literal text).
func (r *Rule) Key() string { return r.key }

// Mode returns the rule's mode.
func (r *Rule) Mode() Mode { return r.mode }

// Range returns the inclusive speed bounds.
func (r *Rule) Range() (lo, hi float64) { return r.minSpeed, r.maxSpeed }

// InRange reports whether min <= speed <= max.
func (r *Rule) InRange(speed float64) bool {
	return r.minSpeed <= speed && speed <= r.maxSpeed
}

// Active reports whether the rule currently has a key held or toggled on.
// Typewrite rules are never active.
func (r *Rule) Active() bool {
	return r.down || r.toggled
}

// Activate emits the in-range side effect for the rule's mode.
// Hold and toggle rules fire once per range entry; typewrite fires on every call.
// State only changes when the keyboard call succeeds.
func (r *Rule) Activate(kb Keyboard) (Action, error) {
	switch r.mode {
	case ModeHold:
		if r.down {
			return ActionNone, nil
		}
		if err := kb.KeyDown(r.key); err != nil {
			return ActionNone, fmt.Errorf("key down %q: %w", r.key, err)
		}
		r.down = true
		return ActionKeyDown, nil

	case ModeToggle:
		if r.toggled {
			return ActionNone, nil
		}
		if err := kb.Press(r.key); err != nil {
			return ActionNone, fmt.Errorf("press %q: %w", r.key, err)
		}
		r.toggled = true
		return ActionPress, nil

	case ModeTypewrite:
		if err := kb.TypeLiteral(r.key); err != nil {
			return ActionNone, fmt.Errorf("type %q: %w", r.key, err)
		}
		return ActionType, nil
	}
	return ActionNone, fmt.Errorf("%w: unknown key type %q", ErrInvalidKeyConfig, r.mode)
}

// Deactivate releases whatever Activate set up. Typewrite rules have nothing to release.
func (r *Rule) Deactivate(kb Keyboard) (Action, error) {
	switch r.mode {
	case ModeHold:
		if !r.down {
			return ActionNone, nil
		}
		if err := kb.KeyUp(r.key); err != nil {
			return ActionNone, fmt.Errorf("key up %q: %w", r.key, err)
		}
		r.down = false
		return ActionKeyUp, nil

	case ModeToggle:
		if !r.toggled {
			return ActionNone, nil
		}
		// A second press turns the toggle back off.
		if err := kb.Press(r.key); err != nil {
			return ActionNone, fmt.Errorf("press %q: %w", r.key, err)
		}
		r.toggled = false
		return ActionPress, nil

	case ModeTypewrite:
		return ActionNone, nil
	}
	return ActionNone, fmt.Errorf("%w: unknown key type %q", ErrInvalidKeyConfig, r.mode)
}
