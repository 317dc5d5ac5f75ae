package logic

import (
	"errors"
	"time"
)

// RuleSet is an ordered collection of independent rules.
type RuleSet struct {
	rules []*Rule
}

// NewRuleSet builds a rule for every config, in order.
// The first invalid config fails the whole set.
func NewRuleSet(cfgs []RuleConfig, isValidKey func(string) bool) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]*Rule, 0, len(cfgs))}
	for _, cfg := range cfgs {
		r, err := NewRule(cfg, isValidKey)
		if err != nil {
			return nil, err
		}
		rs.rules = append(rs.rules, r)
	}
	return rs, nil
}

// Rules returns the rules in evaluation order.
func (rs *RuleSet) Rules() []*Rule {
	return rs.rules
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Evaluate activates every rule whose range contains speed and deactivates the rest.
// A keyboard failure on one rule does not stop evaluation of the others;
// all failures are joined into the returned error.
func (rs *RuleSet) Evaluate(speed float64, now time.Time, kb Keyboard) ([]Event, error) {
	var events []Event
	var errs []error

	for _, r := range rs.rules {
		var action Action
		var err error
		if r.InRange(speed) {
			action, err = r.Activate(kb)
		} else {
			action, err = r.Deactivate(kb)
		}
		if err != nil {
			errs = append(errs, err)
		}
		if action != ActionNone {
			events = append(events, Event{
				Timestamp: now,
				Key:       r.key,
				Mode:      r.mode,
				Action:    action,
				Speed:     speed,
			})
		}
	}

	return events, errors.Join(errs...)
}

// DeactivateAll releases every active rule. Used on shutdown and before a rule set is replaced.
func (rs *RuleSet) DeactivateAll(now time.Time, kb Keyboard) ([]Event, error) {
	var events []Event
	var errs []error

	for _, r := range rs.rules {
		action, err := r.Deactivate(kb)
		if err != nil {
			errs = append(errs, err)
		}
		if action != ActionNone {
			events = append(events, Event{
				Timestamp: now,
				Key:       r.key,
				Mode:      r.mode,
				Action:    action,
			})
		}
	}

	return events, errors.Join(errs...)
}

// Active returns the keys of rules that are currently held or toggled on.
func (rs *RuleSet) Active() []string {
	var keys []string
	for _, r := range rs.rules {
		if r.Active() {
			keys = append(keys, r.key)
		}
	}
	return keys
}
