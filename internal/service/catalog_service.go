package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/util"
)

type catalogService struct {
	repo  repository.EventRepository
	clock clock.Clock
	l     logger.Logger
}

func NewCatalogService(repo repository.EventRepository, c clock.Clock, l logger.Logger) CatalogService {
	return &catalogService{
		repo:  repo,
		clock: c,
		l:     l,
	}
}

// RegisterEvent mirrors an event published by the event service. Counters are
// only initialised the first time an id is seen.
func (s *catalogService) RegisterEvent(ctx context.Context, in RegisterEventInput) (*models.Event, error) {
	if in.EventDate != "" {
		if _, err := util.ParseEventStart(in.EventDate, in.EventTime, time.UTC); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEventSchedule, err)
		}
	}

	e := &models.Event{
		ID:             in.ID,
		Title:          in.Title,
		OrganizerID:    in.OrganizerID,
		EventDate:      in.EventDate,
		EventTime:      in.EventTime,
		TicketPrice:    in.TicketPrice,
		TicketCapacity: in.TicketCapacity,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.Save(ctx, e); err != nil {
		s.l.Errorf(ctx, "service.catalogService.RegisterEvent: %v", err)
		return nil, err
	}

	return s.repo.Get(ctx, in.ID)
}

func (s *catalogService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.repo.Get(ctx, eventID)
}

func (s *catalogService) ListEvents(ctx context.Context) ([]*models.Event, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		s.l.Errorf(ctx, "service.catalogService.ListEvents: %v", err)
		return nil, err
	}
	return events, nil
}

func (s *catalogService) GetCapacity(ctx context.Context, eventID string) (int64, error) {
	a, err := s.repo.GetAvailability(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return a.TicketCapacity, nil
}

func (s *catalogService) GetAvailable(ctx context.Context, eventID string) (int64, error) {
	a, err := s.repo.GetAvailability(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return a.AvailableTickets, nil
}

func (s *catalogService) GetAvailability(ctx context.Context, eventID string) (models.Availability, error) {
	return s.repo.GetAvailability(ctx, eventID)
}
