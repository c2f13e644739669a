package main

import (
	"fmt"
	"io"
	"strings"

	"contagion/internal/config"
	"contagion/internal/core/macro"
)

func printBanner(w io.Writer, profile config.Profile, cfg macro.Config) {
	k := cfg.Keybinds
	t := cfg.Timing

	fmt.Fprintln(w, "Exodia Contagion macro")
	fmt.Fprintf(w, "  Hold %s to run the combo", bindLabel(k.Macro))
	if k.MacroAlt != 0 {
		fmt.Fprintf(w, " (or %s)", bindLabel(k.MacroAlt))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s: rapid click x%d\n", bindLabel(k.RapidClick), t.RapidClickCount)
	fmt.Fprintf(w, "  %s: enable/disable\n", bindLabel(k.Toggle))
	fmt.Fprintf(w, "  Melee %s, jump %s, aim %s, fire %s, emote %s\n",
		bindLabel(k.Melee), bindLabel(k.Jump), bindLabel(k.Aim), bindLabel(k.Fire), bindLabel(k.Emote))
	fmt.Fprintf(w, "  FPS %.0f: double jump %s, emote prep %s, one pass %s\n",
		t.FPS, t.DoubleJumpDelay(), t.EmotePreparationDelay(), macro.TotalDelay(macro.BuildSequence(k, t)))
	if profile.FocusCheck {
		fmt.Fprintf(w, "  Only active while %q is focused\n", profile.Target)
	}
	state := "enabled"
	if !cfg.StartEnabled {
		state = "disabled"
	}
	fmt.Fprintf(w, "  Macro starts %s. Press Ctrl+C to quit\n", state)
}

func bindLabel(code uint16) string {
	return displayCodeName(formatCodeName(code))
}

func displayCodeName(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return "-"
	}

	switch name {
	case "BTN_LEFT":
		return "Mouse Left"
	case "BTN_RIGHT":
		return "Mouse Right"
	case "BTN_MIDDLE":
		return "Mouse Middle"
	case "BTN_SIDE", "BTN_BACK":
		return "Mouse 4"
	case "BTN_EXTRA", "BTN_FORWARD":
		return "Mouse 5"
	}

	if token, ok := strings.CutPrefix(name, "BTN_"); ok {
		return "Mouse " + humanizeInputToken(token)
	}
	if token, ok := strings.CutPrefix(name, "KEY_"); ok {
		return humanizeInputToken(token)
	}
	return name
}

func humanizeInputToken(raw string) string {
	parts := strings.Split(raw, "_")
	words := make([]string, 0, len(parts)*2)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		words = append(words, humanizeInputWord(part)...)
	}
	if len(words) == 0 {
		return raw
	}
	return strings.Join(words, " ")
}

var inputWords = map[string][]string{
	"ALT":        {"Alt"},
	"CTRL":       {"Ctrl"},
	"SHIFT":      {"Shift"},
	"META":       {"Meta"},
	"ESC":        {"Esc"},
	"ENTER":      {"Enter"},
	"SPACE":      {"Space"},
	"TAB":        {"Tab"},
	"DOT":        {"."},
	"COMMA":      {","},
	"SLASH":      {"/"},
	"SEMICOLON":  {";"},
	"APOSTROPHE": {"'"},
	"MINUS":      {"-"},
	"EQUAL":      {"="},
	"GRAVE":      {"`"},
	"CAPSLOCK":   {"Caps", "Lock"},
	"PAGEUP":     {"Page", "Up"},
	"PAGEDOWN":   {"Page", "Down"},
	"BACKSPACE":  {"Backspace"},
}

func humanizeInputWord(raw string) []string {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if words, ok := inputWords[token]; ok {
		return words
	}

	if rest, ok := strings.CutPrefix(token, "LEFT"); ok && rest != "" {
		return append([]string{"Left"}, humanizeInputWord(rest)...)
	}
	if rest, ok := strings.CutPrefix(token, "RIGHT"); ok && rest != "" {
		return append([]string{"Right"}, humanizeInputWord(rest)...)
	}
	if rest, ok := strings.CutPrefix(token, "KP"); ok && rest != "" {
		return append([]string{"Keypad"}, humanizeInputWord(rest)...)
	}
	if len(token) > 1 && token[0] == 'F' && isDigits(token[1:]) {
		return []string{token}
	}
	if len(token) == 1 {
		return []string{token}
	}
	return []string{strings.ToUpper(token[:1]) + strings.ToLower(token[1:])}
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func printDevice(w io.Writer, path, name string, virtual, pointer bool) {
	virtualTag := "physical"
	if virtual {
		virtualTag = "virtual"
	}
	pointerTag := "non-pointer"
	if pointer {
		pointerTag = "pointer"
	}
	fmt.Fprintf(w, "%s: %s [%s, %s]\n", path, name, virtualTag, pointerTag)
}
