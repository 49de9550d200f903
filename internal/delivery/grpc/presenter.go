package grpc

import (
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/util"
	"google.golang.org/protobuf/types/known/structpb"
)

func availabilityToStruct(a models.Availability) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"event_id":          a.EventID,
		"ticket_capacity":   a.TicketCapacity,
		"available_tickets": a.AvailableTickets,
		"tickets_sold":      a.TicketsSold,
		"held":              a.Held(),
		"seq":               a.Seq,
		"updated_at":        util.TimeToISO8601Str(a.UpdatedAt),
	})
}

func reservationToStruct(r *models.Reservation) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":         r.ID,
		"event_id":   r.EventID,
		"buyer_id":   r.BuyerID,
		"state":      string(r.State),
		"created_at": util.TimeToISO8601Str(r.CreatedAt),
		"expires_at": util.TimeToISO8601Str(r.ExpiresAt),
	})
}
