package store

import (
	"fmt"
	"log/slog"
)

// EventChange is the event emitted by SetState.
const EventChange = "change"

// EventFunc receives named-event data.
type EventFunc func(data any)

// ChangeFunc receives the changed cells of one SetState call.
type ChangeFunc func(changes map[string]any)

type eventListener struct {
	id ListenerID
	fn EventFunc
}

// OnEvent subscribes fn to a named event.
func (s *Store) OnEvent(event string, fn EventFunc) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID()
	s.events[event] = append(s.events[event], eventListener{id: id, fn: fn})
	return id
}

// RemoveEventListener unsubscribes a listener from a named event.
func (s *Store) RemoveEventListener(event string, id ListenerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.events[event]
	for i, l := range list {
		if l.id == id {
			s.events[event] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove %s listener %d: %w", event, id, ErrListenerNotFound)
}

// OnChange subscribes fn to change events.
func (s *Store) OnChange(fn ChangeFunc) ListenerID {
	return s.OnEvent(EventChange, func(data any) {
		changes, _ := data.(map[string]any)
		fn(changes)
	})
}

// RemoveChangeListener unsubscribes a change listener.
func (s *Store) RemoveChangeListener(id ListenerID) error {
	return s.RemoveEventListener(EventChange, id)
}

// Emit delivers data to every listener of event in subscription order.
// Returns whether any listener was subscribed.
func (s *Store) Emit(event string, data any) bool {
	s.mu.Lock()
	list := make([]eventListener, len(s.events[event]))
	copy(list, s.events[event])
	s.mu.Unlock()

	for _, l := range list {
		s.runEvent(event, l, data)
	}
	return len(list) > 0
}

func (s *Store) runEvent(event string, l eventListener, data any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store event listener panicked",
				slog.String("store", s.name),
				slog.String("event", event),
				slog.Any("panic", r),
			)
		}
	}()
	l.fn(data)
}
