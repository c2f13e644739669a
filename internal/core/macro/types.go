package macro

import "time"

const (
	EventTypeSyn uint16 = 0x00
	EventTypeKey uint16 = 0x01

	SynReportCode uint16 = 0
)

// Key and button codes use the Linux evdev numbering on every platform.
const (
	CodeKeyJ     uint16 = 36
	CodeKeyE     uint16 = 18
	CodeKeyDot   uint16 = 52
	CodeKeySpace uint16 = 57
	CodeKeyF11   uint16 = 87

	CodeBTNLeft   uint16 = 0x110
	CodeBTNRight  uint16 = 0x111
	CodeBTNMiddle uint16 = 0x112
	CodeBTNSide   uint16 = 0x113
	CodeBTNExtra  uint16 = 0x114
)

type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Keybinds maps each macro role to an input code. MacroAlt may be zero to
// disable the second trigger.
type Keybinds struct {
	Melee      uint16
	Jump       uint16
	Aim        uint16
	Fire       uint16
	Emote      uint16
	Macro      uint16
	MacroAlt   uint16
	RapidClick uint16
	Toggle     uint16
}

type Timing struct {
	FPS                 float64
	JumpDelay           time.Duration
	AimMeleeDelay       time.Duration
	MeleeHold           time.Duration
	UseEmoteFormula     bool
	ManualEmoteDelay    time.Duration
	RapidFireDuration   time.Duration
	RapidFireClickDelay time.Duration
	SequenceEndDelay    time.Duration
	LoopDelay           time.Duration
	RapidClickCount     int
	RapidClickDelay     time.Duration
	RapidClickHold      time.Duration
	FocusPollInterval   time.Duration
}

type Config struct {
	Keybinds Keybinds
	Timing   Timing
	// Sources limits which event sources may drive the macro. Nil accepts all.
	Sources      map[string]struct{}
	StartEnabled bool
}

type Injector interface {
	WriteEvents(events ...Event) error
	Close() error
}

// FocusChecker reports whether the target game currently owns the foreground.
type FocusChecker interface {
	Focused() (bool, error)
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
