package focus

import (
	"errors"
	"testing"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		name   string
		target string
		want   bool
	}{
		{"Warframe", "warframe", true},
		{"Warframe.x64.exe", "WARFRAME", true},
		{"  warframe launcher ", " warframe ", true},
		{"Firefox", "warframe", false},
		{"Warframe", "", false},
		{"", "warframe", false},
	}
	for _, tc := range cases {
		if got := Match(tc.name, tc.target); got != tc.want {
			t.Fatalf("Match(%q, %q) = %v, want %v", tc.name, tc.target, got, tc.want)
		}
	}
}

func TestAlways(t *testing.T) {
	focused, err := Always.Focused()
	if err != nil || !focused {
		t.Fatalf("Always.Focused() = %v, %v", focused, err)
	}
}

func TestNameCheckerPropagatesErrors(t *testing.T) {
	sentinel := errors.New("no window")
	checker := nameChecker{target: "warframe", name: func() (string, error) { return "", sentinel }}
	focused, err := checker.Focused()
	if !errors.Is(err, sentinel) || focused {
		t.Fatalf("Focused() = %v, %v; want false, %v", focused, err, sentinel)
	}

	checker.name = func() (string, error) { return "Warframe", nil }
	if focused, err := checker.Focused(); err != nil || !focused {
		t.Fatalf("Focused() = %v, %v; want true", focused, err)
	}
}

func TestFuncAdapter(t *testing.T) {
	var checker Checker = Func(func() (bool, error) { return false, nil })
	if focused, _ := checker.Focused(); focused {
		t.Fatalf("expected Func adapter to return wrapped result")
	}
}
