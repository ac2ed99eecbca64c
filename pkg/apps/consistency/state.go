package consistency

import (
	"fmt"
	"sync"

	"f1consistencybot/pkg/dashboard"
)

// chatSelection is the selection a chat is building plus the competitors it
// can choose from.
type chatSelection struct {
	selection dashboard.Selection
	round     int
	available []string
}

// selectionKey identifies the keyboard a pick was made on.
type selectionKey struct {
	season int
	round  int
	mode   dashboard.Mode
}

func (cs chatSelection) key() selectionKey {
	return selectionKey{season: cs.selection.Season, round: cs.round, mode: cs.selection.Mode}
}

func staleSelection() error {
	return &dashboard.SelectionError{Message: "La selección ha caducado, vuelve a elegir el Gran Premio"}
}

type selections struct {
	mu    sync.Mutex
	chats map[int64]*chatSelection
}

func newSelections() *selections {
	return &selections{chats: map[int64]*chatSelection{}}
}

func (s *selections) start(chatID int64, sel dashboard.Selection, round int, available []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel.Competitors = []string{}
	s.chats[chatID] = &chatSelection{selection: sel, round: round, available: available}
}

func (s *selections) get(chatID int64) (chatSelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.chats[chatID]
	if !ok {
		return chatSelection{}, false
	}
	copied := *cs
	copied.selection.Competitors = append([]string{}, cs.selection.Competitors...)
	return copied, true
}

// current returns the selection of a chat when it was started from the keyboard
// identified by key.
func (s *selections) current(chatID int64, key selectionKey) (chatSelection, error) {
	cs, ok := s.get(chatID)
	if !ok || cs.key() != key {
		return chatSelection{}, staleSelection()
	}
	return cs, nil
}

// toggle adds or removes a competitor from the selection of a chat. A pick above
// the mode's limit is rejected and the selection is left untouched, as is a pick
// made on the keyboard of another selection.
func (s *selections) toggle(chatID int64, key selectionKey, competitor string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.chats[chatID]
	if !ok || cs.key() != key {
		return nil, staleSelection()
	}

	found := false
	for _, id := range cs.available {
		if id == competitor {
			found = true
			break
		}
	}
	if !found {
		return nil, &dashboard.SelectionError{Message: fmt.Sprintf("%s no ha corrido esta carrera", competitor)}
	}

	picks := cs.selection.Competitors
	for i, id := range picks {
		if id == competitor {
			cs.selection.Competitors = append(picks[:i:i], picks[i+1:]...)
			return append([]string{}, cs.selection.Competitors...), nil
		}
	}
	if len(picks) >= cs.selection.Mode.Needed() {
		return append([]string{}, picks...), &dashboard.SelectionError{
			Message: fmt.Sprintf("Solo se pueden seleccionar %d pilotos como máximo, quita uno antes de elegir otro", cs.selection.Mode.Needed()),
		}
	}
	cs.selection.Competitors = append(picks, competitor)
	return append([]string{}, cs.selection.Competitors...), nil
}

func (s *selections) clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chats, chatID)
}
