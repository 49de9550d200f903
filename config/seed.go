package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedEvent is one entry of the events seed file. Event CRUD lives in another
// service; the seed file mirrors what that service published.
type SeedEvent struct {
	ID             string  `yaml:"id"`
	Title          string  `yaml:"title"`
	OrganizerID    string  `yaml:"organizer_id"`
	EventDate      string  `yaml:"event_date"`
	EventTime      string  `yaml:"event_time"`
	TicketPrice    float64 `yaml:"ticket_price"`
	TicketCapacity int64   `yaml:"ticket_capacity"`
}

type seedFile struct {
	Events []SeedEvent `yaml:"events"`
}

func LoadSeedEvents(path string) ([]SeedEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Events))
	for i, e := range f.Events {
		if e.ID == "" {
			return nil, fmt.Errorf("seed event #%d: id is required", i)
		}
		if e.TicketCapacity < 0 {
			return nil, fmt.Errorf("seed event %s: negative ticket capacity", e.ID)
		}
		if _, ok := seen[e.ID]; ok {
			return nil, fmt.Errorf("seed event %s: duplicate id", e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	return f.Events, nil
}
