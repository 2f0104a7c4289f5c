// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import "fmt"

// deriveLocked computes the status from the state.
func (s *Store) deriveLocked() Status {
	switch {
	case len(s.streaming) > 0:
		return StatusStreaming
	case s.loading:
		return StatusLoading
	case s.lastErr != "":
		return StatusError
	default:
		return StatusIdle
	}
}

// refreshLocked recomputes the status after a state change.
func (s *Store) refreshLocked() {
	s.metrics.SetStreaming(len(s.streaming))
	s.setStatusLocked(s.deriveLocked())
}

func (s *Store) setStatusLocked(st Status) {
	if st == s.status {
		return
	}
	prev := s.status
	s.status = st
	s.emit(EventStatusChanged, StatusPayload{Status: st, Previous: prev})
}

func (s *Store) setErrorLocked(msg string) {
	if msg == s.lastErr {
		return
	}
	s.lastErr = msg
	s.emit(EventErrorChanged, ErrorPayload{Error: msg})
}

// SetError records msg as the current error. An empty msg clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	if msg != "" {
		s.log.Error().Str("error", msg).Msg("error recorded")
	}
	s.setErrorLocked(msg)
	s.refreshLocked()
	s.unlock()
}

// ClearError removes the recorded error.
func (s *Store) ClearError() {
	s.SetError("")
}

// SetStatus forces the status. The derived status takes over again at the
// next state change.
func (s *Store) SetStatus(st Status) error {
	switch st {
	case StatusIdle, StatusLoading, StatusStreaming, StatusError:
	default:
		return fmt.Errorf("unknown status %q", st)
	}
	s.mu.Lock()
	s.setStatusLocked(st)
	s.unlock()
	return nil
}
