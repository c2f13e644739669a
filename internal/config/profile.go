package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"contagion/internal/core/macro"

	"gopkg.in/yaml.v3"
)

const DefaultTarget = "warframe"

// Profile is the on-disk form of the macro settings. Keybinds are code names
// (KEY_E, BTN_SIDE, numeric codes) and timing values are milliseconds.
type Profile struct {
	Target       string   `yaml:"target"`
	StartEnabled bool     `yaml:"start_enabled"`
	FocusCheck   bool     `yaml:"focus_check"`
	Keybinds     Keybinds `yaml:"keybinds"`
	Timing       Timing   `yaml:"timing"`
}

type Keybinds struct {
	Melee      string `yaml:"melee"`
	Jump       string `yaml:"jump"`
	Aim        string `yaml:"aim"`
	Fire       string `yaml:"fire"`
	Emote      string `yaml:"emote"`
	Macro      string `yaml:"macro"`
	MacroAlt   string `yaml:"macro_alt"`
	RapidClick string `yaml:"rapid_click"`
	Toggle     string `yaml:"toggle"`
}

type Timing struct {
	FPS                     float64 `yaml:"fps"`
	JumpDelayMS             float64 `yaml:"jump_delay_ms"`
	AimMeleeDelayMS         float64 `yaml:"aim_melee_delay_ms"`
	MeleeHoldMS             float64 `yaml:"melee_hold_ms"`
	UseEmoteFormula         bool    `yaml:"use_emote_formula"`
	EmotePreparationDelayMS float64 `yaml:"emote_preparation_delay_ms"`
	RapidFireDurationMS     float64 `yaml:"rapid_fire_duration_ms"`
	RapidFireClickDelayMS   float64 `yaml:"rapid_fire_click_delay_ms"`
	SequenceEndDelayMS      float64 `yaml:"sequence_end_delay_ms"`
	LoopDelayMS             float64 `yaml:"loop_delay_ms"`
	RapidClickCount         int     `yaml:"rapid_click_count"`
	RapidClickDelayMS       float64 `yaml:"rapid_click_delay_ms"`
	RapidClickHoldMS        float64 `yaml:"rapid_click_hold_ms"`
	FocusPollMS             float64 `yaml:"focus_poll_ms"`
}

func Default() Profile {
	t := macro.DefaultTiming()
	return Profile{
		Target:       DefaultTarget,
		StartEnabled: true,
		FocusCheck:   true,
		Keybinds: Keybinds{
			Melee:      "KEY_E",
			Jump:       "KEY_SPACE",
			Aim:        "BTN_RIGHT",
			Fire:       "BTN_LEFT",
			Emote:      "KEY_DOT",
			Macro:      "BTN_SIDE",
			MacroAlt:   "BTN_EXTRA",
			RapidClick: "KEY_J",
			Toggle:     "KEY_F11",
		},
		Timing: Timing{
			FPS:                     t.FPS,
			JumpDelayMS:             toMS(t.JumpDelay),
			AimMeleeDelayMS:         toMS(t.AimMeleeDelay),
			MeleeHoldMS:             toMS(t.MeleeHold),
			UseEmoteFormula:         t.UseEmoteFormula,
			EmotePreparationDelayMS: toMS(t.ManualEmoteDelay),
			RapidFireDurationMS:     toMS(t.RapidFireDuration),
			RapidFireClickDelayMS:   toMS(t.RapidFireClickDelay),
			SequenceEndDelayMS:      toMS(t.SequenceEndDelay),
			LoopDelayMS:             toMS(t.LoopDelay),
			RapidClickCount:         t.RapidClickCount,
			RapidClickDelayMS:       toMS(t.RapidClickDelay),
			RapidClickHoldMS:        toMS(t.RapidClickHold),
			FocusPollMS:             toMS(t.FocusPollInterval),
		},
	}
}

func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil || configDir == "" {
		return filepath.Join(".", ".contagion.yaml")
	}
	return filepath.Join(configDir, "contagion", "profile.yaml")
}

// Load reads the profile at path over the defaults, so missing fields keep
// their default values. A missing file yields the defaults.
func Load(path string) (Profile, error) {
	profile := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profile, nil
		}
		return profile, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return profile, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&profile); err != nil {
		return Default(), fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return profile, nil
}

func Save(path string, profile Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create profile dir: %w", err)
	}

	data, err := yaml.Marshal(profile)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}
	return nil
}

// ParseFunc turns a key/button name into an input code.
type ParseFunc func(name string) (uint16, error)

// Resolve converts the profile into the runtime macro configuration.
func (p Profile) Resolve(parse ParseFunc) (macro.Config, error) {
	keybinds, err := p.Keybinds.resolve(parse)
	if err != nil {
		return macro.Config{}, err
	}
	timing := p.Timing.resolve()
	if err := keybinds.Validate(); err != nil {
		return macro.Config{}, err
	}
	if err := timing.Validate(); err != nil {
		return macro.Config{}, err
	}
	return macro.Config{
		Keybinds:     keybinds,
		Timing:       timing,
		StartEnabled: p.StartEnabled,
	}, nil
}

// Validate checks the profile without resolving key names.
func (p Profile) Validate() error {
	if p.FocusCheck && strings.TrimSpace(p.Target) == "" {
		return fmt.Errorf("target must be set when focus_check is enabled")
	}
	return p.Timing.resolve().Validate()
}

// Warnings lists settings that are accepted but probably not intended.
func (p Profile) Warnings() []string {
	var warnings []string
	if p.Timing.UseEmoteFormula && macro.EmoteFormulaMS(p.Timing.FPS) < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"emote formula is negative at %.0f fps; using 0ms, consider emote_preparation_delay_ms with use_emote_formula: false",
			p.Timing.FPS,
		))
	}
	if strings.TrimSpace(p.Keybinds.MacroAlt) == "" {
		warnings = append(warnings, "macro_alt is empty; only the primary trigger is active")
	}
	return warnings
}

func (k Keybinds) resolve(parse ParseFunc) (macro.Keybinds, error) {
	var out macro.Keybinds
	fields := []struct {
		name     string
		raw      string
		dst      *uint16
		optional bool
	}{
		{"melee", k.Melee, &out.Melee, false},
		{"jump", k.Jump, &out.Jump, false},
		{"aim", k.Aim, &out.Aim, false},
		{"fire", k.Fire, &out.Fire, false},
		{"emote", k.Emote, &out.Emote, false},
		{"macro", k.Macro, &out.Macro, false},
		{"macro_alt", k.MacroAlt, &out.MacroAlt, true},
		{"rapid_click", k.RapidClick, &out.RapidClick, false},
		{"toggle", k.Toggle, &out.Toggle, false},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			if f.optional {
				continue
			}
			return out, fmt.Errorf("keybinds.%s is empty", f.name)
		}
		code, err := parse(f.raw)
		if err != nil {
			return out, fmt.Errorf("keybinds.%s: %w", f.name, err)
		}
		*f.dst = code
	}
	return out, nil
}

func (t Timing) resolve() macro.Timing {
	return macro.Timing{
		FPS:                 t.FPS,
		JumpDelay:           fromMS(t.JumpDelayMS),
		AimMeleeDelay:       fromMS(t.AimMeleeDelayMS),
		MeleeHold:           fromMS(t.MeleeHoldMS),
		UseEmoteFormula:     t.UseEmoteFormula,
		ManualEmoteDelay:    fromMS(t.EmotePreparationDelayMS),
		RapidFireDuration:   fromMS(t.RapidFireDurationMS),
		RapidFireClickDelay: fromMS(t.RapidFireClickDelayMS),
		SequenceEndDelay:    fromMS(t.SequenceEndDelayMS),
		LoopDelay:           fromMS(t.LoopDelayMS),
		RapidClickCount:     t.RapidClickCount,
		RapidClickDelay:     fromMS(t.RapidClickDelayMS),
		RapidClickHold:      fromMS(t.RapidClickHoldMS),
		FocusPollInterval:   fromMS(t.FocusPollMS),
	}
}

func fromMS(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func toMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
