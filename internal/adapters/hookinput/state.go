package hookinput

// keyValue records a press or release of code and returns the evdev style
// value: 1 for a new press, 2 for a repeated press, 0 for a release.
func keyValue(down map[uint16]bool, code uint16, pressed bool) int32 {
	if !pressed {
		delete(down, code)
		return 0
	}
	if down[code] {
		return 2
	}
	down[code] = true
	return 1
}
