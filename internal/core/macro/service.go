package macro

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const eventQueueSize = 256

type sourcedEvent struct {
	source string
	event  Event
}

type Status struct {
	Enabled       bool
	Focused       bool
	Running       bool
	RapidClicking bool
}

// Service arms the combo while a trigger is held, the macro is enabled and
// the game is focused. Input backends feed it through SubmitEvent and
// receive synthetic input through the Injector.
type Service struct {
	injector Injector
	focus    FocusChecker
	logger   Logger
	clock    clock

	mu       sync.RWMutex
	keybinds Keybinds
	timing   Timing
	sources  map[string]struct{}

	heldMu sync.Mutex
	held   map[uint16]struct{}

	enabled atomic.Bool
	focused atomic.Bool
	running atomic.Bool

	runMu        sync.Mutex
	workerActive bool

	rapidMu       sync.Mutex
	rapidClicking bool

	writeMu sync.Mutex
	pressed map[uint16]struct{}

	eventsCh  chan sourcedEvent
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	loopsWG   sync.WaitGroup
	workersWG sync.WaitGroup
}

func NewService(cfg Config, injector Injector, focus FocusChecker, logger Logger) (*Service, error) {
	if injector == nil {
		return nil, fmt.Errorf("injector is nil")
	}
	if focus == nil {
		return nil, fmt.Errorf("focus checker is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if err := cfg.Keybinds.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Timing.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		injector: injector,
		focus:    focus,
		logger:   logger,
		clock:    preciseClock{},
		keybinds: cfg.Keybinds,
		timing:   cfg.Timing,
		sources:  copySources(cfg.Sources),
		held:     make(map[uint16]struct{}),
		pressed:  make(map[uint16]struct{}),
		eventsCh: make(chan sourcedEvent, eventQueueSize),
		stopCh:   make(chan struct{}),
	}
	s.enabled.Store(cfg.StartEnabled)
	return s, nil
}

func (s *Service) Start() {
	s.startOnce.Do(func() {
		s.refreshFocus()
		s.loopsWG.Add(2)
		go s.eventLoop()
		go s.focusLoop()
	})
}

// Stop halts the sequence and helpers, releases anything still held down
// and closes the injector.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.running.Store(false)
		s.loopsWG.Wait()
		s.workersWG.Wait()
		s.releaseAll()
		if err := s.injector.Close(); err != nil {
			s.logger.Warn("Failed to close injector", "err", err)
		}
	})
}

// SubmitEvent queues an input event observed on source. It returns false
// once the service is stopped.
func (s *Service) SubmitEvent(source string, event Event) bool {
	select {
	case <-s.stopCh:
		return false
	default:
	}
	select {
	case s.eventsCh <- sourcedEvent{source: source, event: event}:
		return true
	case <-s.stopCh:
		return false
	}
}

func (s *Service) SetEnabled(enabled bool) {
	prev := s.enabled.Swap(enabled)
	if !enabled {
		s.running.Store(false)
	}
	if prev == enabled {
		return
	}
	if enabled {
		s.logger.Info("Macro enabled")
	} else {
		s.logger.Info("Macro disabled")
	}
}

func (s *Service) IsEnabled() bool {
	return s.enabled.Load()
}

func (s *Service) Status() Status {
	s.rapidMu.Lock()
	rapid := s.rapidClicking
	s.rapidMu.Unlock()
	return Status{
		Enabled:       s.enabled.Load(),
		Focused:       s.focused.Load(),
		Running:       s.running.Load(),
		RapidClicking: rapid,
	}
}

// Reconfigure swaps keybinds and timing. A running sequence picks the new
// values up on its next pass; held triggers are forgotten.
func (s *Service) Reconfigure(keybinds Keybinds, timing Timing) error {
	if err := keybinds.Validate(); err != nil {
		return err
	}
	if err := timing.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	changedBinds := s.keybinds != keybinds
	s.keybinds = keybinds
	s.timing = timing
	s.mu.Unlock()

	if changedBinds {
		s.clearHeld()
		s.running.Store(false)
	}
	s.logger.Info("Configuration applied", "fps", timing.FPS, "pass", TotalDelay(BuildSequence(keybinds, timing)))
	return nil
}

func (s *Service) snapshot() (Keybinds, Timing) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keybinds, s.timing
}

func (s *Service) acceptsSource(source string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sources == nil {
		return true
	}
	_, ok := s.sources[source]
	return ok
}

func (s *Service) eventLoop() {
	defer s.loopsWG.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case ev := <-s.eventsCh:
			s.handleEvent(ev.source, ev.event)
		}
	}
}

func (s *Service) handleEvent(source string, event Event) {
	if event.Type != EventTypeKey || !s.acceptsSource(source) {
		return
	}
	// Auto-repeat never changes held state.
	if event.Value == 2 {
		return
	}
	pressed := event.Value != 0
	keybinds, _ := s.snapshot()

	switch {
	case event.Code == keybinds.Toggle:
		if pressed {
			s.SetEnabled(!s.IsEnabled())
		}
	case isTrigger(keybinds, event.Code):
		s.handleTrigger(event.Code, pressed)
	case event.Code == keybinds.RapidClick:
		if pressed {
			s.startRapidClick()
		}
	}
}

func isTrigger(k Keybinds, code uint16) bool {
	return code == k.Macro || (k.MacroAlt != 0 && code == k.MacroAlt)
}

func (s *Service) handleTrigger(code uint16, pressed bool) {
	if !pressed {
		if s.releaseHeld(code) == 0 && s.running.Swap(false) {
			s.logger.Debug("Trigger released, stopping after current pass")
		}
		return
	}

	// Presses are tracked while unfocused so a trigger that is still held
	// arms the sequence once focus returns.
	s.setHeld(code)
	if !s.refreshFocus() || !s.IsEnabled() {
		return
	}
	s.startSequence()
}

func (s *Service) setHeld(code uint16) {
	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	s.held[code] = struct{}{}
}

// releaseHeld forgets code and returns how many triggers are still held.
func (s *Service) releaseHeld(code uint16) int {
	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	delete(s.held, code)
	return len(s.held)
}

func (s *Service) anyHeld() bool {
	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	return len(s.held) > 0
}

func (s *Service) clearHeld() {
	s.heldMu.Lock()
	defer s.heldMu.Unlock()
	clear(s.held)
}

func (s *Service) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// refreshFocus queries the focus checker and records the result. Query
// errors count as unfocused.
func (s *Service) refreshFocus() bool {
	focused, err := s.focus.Focused()
	if err != nil {
		s.logger.Debug("Focus query failed", "err", err)
		focused = false
	}
	prev := s.focused.Swap(focused)
	if !focused && s.running.Swap(false) {
		s.logger.Info("Game window lost focus - macro stopped")
	}
	if prev != focused {
		s.logger.Debug("Focus changed", "focused", focused)
		if focused && s.IsEnabled() && s.anyHeld() {
			s.startSequence()
		}
	}
	return focused
}

func (s *Service) focusLoop() {
	defer s.loopsWG.Done()
	for {
		_, timing := s.snapshot()
		timer := time.NewTimer(timing.FocusPollInterval)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
		s.refreshFocus()
	}
}

func (s *Service) startSequence() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.stopped() {
		return
	}
	s.running.Store(true)
	if s.workerActive {
		return
	}
	s.workerActive = true
	s.workersWG.Add(1)
	go s.sequenceLoop()
}

// sequenceLoop is the single combo worker. It replays the step list while
// running and re-reads configuration before every pass.
func (s *Service) sequenceLoop() {
	defer s.workersWG.Done()

	p := &player{
		clock:   s.clock,
		write:   s.writeEvents,
		running: s.running.Load,
		logger:  s.logger,
	}
	s.logger.Debug("Sequence started")
	for {
		if !s.running.Load() {
			s.runMu.Lock()
			if !s.running.Load() {
				s.releaseSequenceInputs()
				s.workerActive = false
				s.runMu.Unlock()
				s.logger.Debug("Sequence stopped")
				return
			}
			s.runMu.Unlock()
		}

		keybinds, timing := s.snapshot()
		if err := p.play(BuildSequence(keybinds, timing)); err != nil {
			s.logger.Error("Sequence failed", "err", err)
			s.running.Store(false)
			continue
		}
		s.clock.Sleep(timing.LoopDelay)
	}
}

func (s *Service) releaseSequenceInputs() {
	keybinds, _ := s.snapshot()
	for _, code := range []uint16{keybinds.Melee, keybinds.Emote, keybinds.Aim, keybinds.Fire} {
		if err := s.writeEvents(keyEvents(code, 0)...); err != nil {
			s.logger.Warn("Failed to release input", "code", code, "err", err)
		}
	}
}

func (s *Service) writeEvents(events ...Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.injector.WriteEvents(events...); err != nil {
		return err
	}
	for _, event := range events {
		if event.Type != EventTypeKey {
			continue
		}
		if event.Value == 0 {
			delete(s.pressed, event.Code)
		} else {
			s.pressed[event.Code] = struct{}{}
		}
	}
	return nil
}

func (s *Service) pressedCodes() []uint16 {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	codes := make([]uint16, 0, len(s.pressed))
	for code := range s.pressed {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func (s *Service) releaseAll() {
	for _, code := range s.pressedCodes() {
		if err := s.writeEvents(keyEvents(code, 0)...); err != nil {
			s.logger.Warn("Failed to release input", "code", code, "err", err)
		}
	}
}

func copySources(sources map[string]struct{}) map[string]struct{} {
	if sources == nil {
		return nil
	}
	out := make(map[string]struct{}, len(sources))
	for source := range sources {
		out[source] = struct{}{}
	}
	return out
}
