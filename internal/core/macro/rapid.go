package macro

// startRapidClick launches the rapid-click helper unless one is already in
// flight.
func (s *Service) startRapidClick() {
	if !s.IsEnabled() || !s.refreshFocus() {
		return
	}

	s.rapidMu.Lock()
	defer s.rapidMu.Unlock()
	if s.rapidClicking || s.stopped() {
		return
	}
	s.rapidClicking = true
	s.workersWG.Add(1)
	go s.rapidClick()
}

func (s *Service) rapidClick() {
	defer s.workersWG.Done()

	keybinds, timing := s.snapshot()
	defer func() {
		if err := s.writeEvents(keyEvents(keybinds.Fire, 0)...); err != nil {
			s.logger.Warn("Failed to release fire button", "err", err)
		}
		s.rapidMu.Lock()
		s.rapidClicking = false
		s.rapidMu.Unlock()
	}()

	clicks := 0
	for i := 0; i < timing.RapidClickCount; i++ {
		if !s.IsEnabled() || s.stopped() {
			break
		}
		if err := s.writeEvents(keyEvents(keybinds.Fire, 1)...); err != nil {
			s.logger.Error("Rapid click failed", "err", err)
			return
		}
		s.clock.Sleep(timing.RapidClickHold)
		if err := s.writeEvents(keyEvents(keybinds.Fire, 0)...); err != nil {
			s.logger.Error("Rapid click failed", "err", err)
			return
		}
		clicks++
		s.clock.Sleep(timing.RapidClickDelay)
	}
	s.logger.Debug("Rapid click finished", "clicks", clicks)
}
