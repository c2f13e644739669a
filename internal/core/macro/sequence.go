package macro

import (
	"fmt"
	"time"
)

type Action uint8

const (
	ActionPress Action = iota + 1
	ActionRelease
	// ActionBurst clicks Code every Interval until Duration has elapsed or
	// the sequence is no longer running.
	ActionBurst
	// ActionSettle waits Delay only while the sequence is still running.
	ActionSettle
)

func (a Action) String() string {
	switch a {
	case ActionPress:
		return "press"
	case ActionRelease:
		return "release"
	case ActionBurst:
		return "burst"
	case ActionSettle:
		return "settle"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Step is one entry of the combo: perform Action, then wait Delay.
type Step struct {
	Action   Action
	Code     uint16
	Delay    time.Duration
	Duration time.Duration
	Interval time.Duration
	Label    string
}

// BuildSequence returns the ordered Exodia Contagion combo: double jump,
// aim + melee, emote cancel, rapid fire, end delay.
func BuildSequence(k Keybinds, t Timing) []Step {
	jump := t.DoubleJumpDelay()
	return []Step{
		{Action: ActionPress, Code: k.Jump, Delay: jump, Label: "jump"},
		{Action: ActionRelease, Code: k.Jump, Label: "jump"},
		{Action: ActionPress, Code: k.Jump, Delay: jump, Label: "double jump"},
		{Action: ActionRelease, Code: k.Jump, Label: "double jump"},

		{Action: ActionPress, Code: k.Aim, Delay: t.AimMeleeDelay, Label: "aim"},
		{Action: ActionPress, Code: k.Melee, Delay: t.MeleeHold, Label: "melee"},
		{Action: ActionRelease, Code: k.Melee, Label: "melee"},
		{Action: ActionRelease, Code: k.Aim, Delay: t.EmotePreparationDelay(), Label: "aim"},

		{Action: ActionPress, Code: k.Emote, Delay: jump, Label: "emote"},
		{Action: ActionRelease, Code: k.Emote, Label: "emote"},
		{Action: ActionPress, Code: k.Emote, Delay: jump, Label: "emote cancel"},
		{Action: ActionRelease, Code: k.Emote, Label: "emote cancel"},

		{
			Action:   ActionBurst,
			Code:     k.Fire,
			Duration: t.RapidFireDuration,
			Interval: t.RapidFireClickDelay,
			Label:    "rapid fire",
		},
		{Action: ActionSettle, Delay: t.SequenceEndDelay, Label: "end"},
	}
}

// TotalDelay is the nominal duration of one pass, counting bursts at their
// full length.
func TotalDelay(steps []Step) time.Duration {
	var total time.Duration
	for _, step := range steps {
		total += step.Delay
		if step.Action == ActionBurst {
			total += step.Duration
		}
	}
	return total
}

type player struct {
	clock   clock
	write   func(events ...Event) error
	running func() bool
	logger  Logger
}

// play runs every step once. Only bursts and settle steps observe the
// running flag; key steps always complete so nothing is left half pressed.
func (p *player) play(steps []Step) error {
	for _, step := range steps {
		switch step.Action {
		case ActionPress:
			if err := p.write(keyEvents(step.Code, 1)...); err != nil {
				return fmt.Errorf("%s press: %w", step.Label, err)
			}
		case ActionRelease:
			if err := p.write(keyEvents(step.Code, 0)...); err != nil {
				return fmt.Errorf("%s release: %w", step.Label, err)
			}
		case ActionBurst:
			if err := p.burst(step); err != nil {
				return err
			}
		case ActionSettle:
			if !p.running() {
				continue
			}
		}
		p.clock.Sleep(step.Delay)
	}
	return nil
}

func (p *player) burst(step Step) error {
	if !p.running() {
		return nil
	}
	start := p.clock.Now()
	clicks := 0
	for p.running() {
		if err := p.write(clickEvents(step.Code)...); err != nil {
			return fmt.Errorf("%s click: %w", step.Label, err)
		}
		clicks++
		p.clock.Sleep(step.Interval)
		if p.clock.Now().Sub(start) > step.Duration {
			break
		}
	}
	p.logger.Debug("Burst finished", "clicks", clicks)
	return nil
}

func keyEvents(code uint16, value int32) []Event {
	return []Event{
		{Type: EventTypeKey, Code: code, Value: value},
		{Type: EventTypeSyn, Code: SynReportCode, Value: 0},
	}
}

func clickEvents(code uint16) []Event {
	return []Event{
		{Type: EventTypeKey, Code: code, Value: 1},
		{Type: EventTypeSyn, Code: SynReportCode, Value: 0},
		{Type: EventTypeKey, Code: code, Value: 0},
		{Type: EventTypeSyn, Code: SynReportCode, Value: 0},
	}
}
