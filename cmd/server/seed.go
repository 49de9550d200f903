package main

import (
	"context"
	"fmt"

	"github.com/vogiaan1904/ticketbottle-inventory/config"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	pkgLog "github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

// seedEvents registers the events listed in path. Re-seeding a known event
// refreshes its metadata and keeps its live counters.
func seedEvents(ctx context.Context, path string, catalog service.CatalogService, l pkgLog.Logger) error {
	if path == "" {
		return nil
	}

	events, err := config.LoadSeedEvents(path)
	if err != nil {
		return err
	}

	for _, e := range events {
		_, err := catalog.RegisterEvent(ctx, service.RegisterEventInput{
			ID:             e.ID,
			Title:          e.Title,
			OrganizerID:    e.OrganizerID,
			EventDate:      e.EventDate,
			EventTime:      e.EventTime,
			TicketPrice:    e.TicketPrice,
			TicketCapacity: e.TicketCapacity,
		})
		if err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}

	l.Infof(ctx, "Seeded %d events from %s", len(events), path)
	return nil
}
