package macro

import (
	"fmt"
	"math"
	"time"
)

func DefaultTiming() Timing {
	return Timing{
		FPS:                 160,
		JumpDelay:           1100 * time.Millisecond,
		AimMeleeDelay:       25 * time.Millisecond,
		MeleeHold:           50 * time.Millisecond,
		UseEmoteFormula:     true,
		ManualEmoteDelay:    100 * time.Millisecond,
		RapidFireDuration:   230 * time.Millisecond,
		RapidFireClickDelay: time.Millisecond,
		SequenceEndDelay:    50 * time.Millisecond,
		LoopDelay:           time.Millisecond,
		RapidClickCount:     10,
		RapidClickDelay:     50 * time.Millisecond,
		RapidClickHold:      10 * time.Millisecond,
		FocusPollInterval:   time.Second,
	}
}

func DefaultKeybinds() Keybinds {
	return Keybinds{
		Melee:      CodeKeyE,
		Jump:       CodeKeySpace,
		Aim:        CodeBTNRight,
		Fire:       CodeBTNLeft,
		Emote:      CodeKeyDot,
		Macro:      CodeBTNSide,
		MacroAlt:   CodeBTNExtra,
		RapidClick: CodeKeyJ,
		Toggle:     CodeKeyF11,
	}
}

// DoubleJumpDelay scales the configured jump delay by the game frame rate.
func (t Timing) DoubleJumpDelay() time.Duration {
	if t.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(t.JumpDelay) / t.FPS)
}

// EmotePreparationDelay returns the wait between releasing aim and the first
// emote press. With the formula enabled it is max(0, -26*ln(fps)+245) ms.
func (t Timing) EmotePreparationDelay() time.Duration {
	if !t.UseEmoteFormula {
		return t.ManualEmoteDelay
	}
	ms := EmoteFormulaMS(t.FPS)
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// EmoteFormulaMS is the unclamped emote cancel formula. A negative result
// means the frame rate is too high for the formula to be meaningful.
func EmoteFormulaMS(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return -26*math.Log(fps) + 245
}

func (t Timing) Validate() error {
	if t.FPS <= 0 || math.IsNaN(t.FPS) || math.IsInf(t.FPS, 0) {
		return fmt.Errorf("fps must be > 0")
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"jump delay", t.JumpDelay},
		{"aim/melee delay", t.AimMeleeDelay},
		{"melee hold", t.MeleeHold},
		{"manual emote delay", t.ManualEmoteDelay},
		{"rapid fire duration", t.RapidFireDuration},
		{"rapid fire click delay", t.RapidFireClickDelay},
		{"sequence end delay", t.SequenceEndDelay},
		{"loop delay", t.LoopDelay},
		{"rapid click delay", t.RapidClickDelay},
		{"rapid click hold", t.RapidClickHold},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must be >= 0", d.name)
		}
	}
	if t.RapidClickCount < 0 {
		return fmt.Errorf("rapid click count must be >= 0")
	}
	if t.FocusPollInterval <= 0 {
		return fmt.Errorf("focus poll interval must be > 0")
	}
	return nil
}

func (k Keybinds) Validate() error {
	required := []struct {
		name string
		code uint16
	}{
		{"melee", k.Melee},
		{"jump", k.Jump},
		{"aim", k.Aim},
		{"fire", k.Fire},
		{"emote", k.Emote},
		{"macro", k.Macro},
		{"rapid_click", k.RapidClick},
		{"toggle", k.Toggle},
	}
	for _, r := range required {
		if r.code == 0 {
			return fmt.Errorf("%s keybind is not set", r.name)
		}
	}

	hotkeys := map[uint16]string{k.Macro: "macro"}
	check := func(name string, code uint16) error {
		if code == 0 {
			return nil
		}
		if other, ok := hotkeys[code]; ok {
			return fmt.Errorf("%s keybind must be different from %s", name, other)
		}
		hotkeys[code] = name
		return nil
	}
	if err := check("macro_alt", k.MacroAlt); err != nil {
		return err
	}
	if err := check("rapid_click", k.RapidClick); err != nil {
		return err
	}
	if err := check("toggle", k.Toggle); err != nil {
		return err
	}

	// Backends that observe their own synthetic input would re-trigger or
	// toggle the macro mid-sequence.
	injected := []struct {
		name string
		code uint16
	}{
		{"jump", k.Jump},
		{"melee", k.Melee},
		{"emote", k.Emote},
		{"aim", k.Aim},
		{"fire", k.Fire},
	}
	for _, in := range injected {
		if other, ok := hotkeys[in.code]; ok {
			return fmt.Errorf("%s keybind must be different from %s", in.name, other)
		}
	}
	return nil
}

// Triggers returns the codes that start the sequence while held.
func (k Keybinds) Triggers() []uint16 {
	if k.MacroAlt == 0 {
		return []uint16{k.Macro}
	}
	return []uint16{k.Macro, k.MacroAlt}
}

// Watched returns every code an input backend must deliver to the service.
func (k Keybinds) Watched() []uint16 {
	return append(k.Triggers(), k.RapidClick, k.Toggle)
}

// Injected returns every code the macro may synthesize.
func (k Keybinds) Injected() []uint16 {
	return []uint16{k.Jump, k.Melee, k.Emote, k.Aim, k.Fire}
}
