package events

import (
	"encoding/json"
	"os"
	"strings"
)

type Event struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Venue     string `json:"venue"`
	LocalDate string `json:"local_date"`
	Image     string `json:"image,omitempty"`
}

// Store holds the searchable catalog of tradable events. The catalog is
// loaded once from a JSON file; a small built-in list keeps local demos
// working when the file is missing.
type Store struct {
	events []Event
}

func NewStore(path string) (*Store, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			var list []Event
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, err
			}
			return &Store{events: list}, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return &Store{events: builtinEvents()}, nil
}

func builtinEvents() []Event {
	return []Event{
		{ID: "E1", Name: "Taylor Swift | The Eras Tour", Venue: "SoFi Stadium", LocalDate: "2025-12-20"},
		{ID: "E2", Name: "Los Angeles Lakers vs Boston Celtics", Venue: "Crypto.com Arena", LocalDate: "2025-12-25"},
	}
}

// Search filters by keyword over name and venue, and by city over venue.
// Empty filters match everything.
func (s *Store) Search(keyword, city string) []Event {
	keyword = strings.TrimSpace(keyword)
	city = strings.TrimSpace(city)
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		keywordOK := keyword == "" || containsFold(e.Name, keyword) || containsFold(e.Venue, keyword)
		cityOK := city == "" || containsFold(e.Venue, city)
		if keywordOK && cityOK {
			out = append(out, e)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
