package redisrepo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

const (
	eventsSetKey   = "ticketing:events"
	expiryIndexKey = "ticketing:reservations:expiry"
	pendingKey     = "ticketing:issuance:pending"
)

// Script reply codes.
const (
	codeOK           = 0
	codeUnchanged    = 1
	codeNotFound     = -1
	codeSoldOut      = -2
	codeExists       = -3
	codeInvalidState = -4
	codeExpired      = -5
)

func eventKey(id string) string {
	return fmt.Sprintf("ticketing:event:%s", id)
}

func reservationKey(id string) string {
	return fmt.Sprintf("ticketing:reservation:%s", id)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// parseReply decodes {code, available, sold, capacity, seq, updated_at}.
func parseReply(eventID string, res any) (int64, models.Availability, error) {
	vals, ok := res.([]any)
	if !ok || len(vals) == 0 {
		return 0, models.Availability{}, fmt.Errorf("unexpected script reply %T", res)
	}

	ints := make([]int64, len(vals))
	for i, v := range vals {
		n, ok := v.(int64)
		if !ok {
			return 0, models.Availability{}, fmt.Errorf("unexpected script reply element %T", v)
		}
		ints[i] = n
	}

	if len(ints) < 6 {
		return ints[0], models.Availability{EventID: eventID}, nil
	}

	return ints[0], models.Availability{
		EventID:          eventID,
		AvailableTickets: ints[1],
		TicketsSold:      ints[2],
		TicketCapacity:   ints[3],
		Seq:              ints[4],
		UpdatedAt:        time.UnixMilli(ints[5]).UTC(),
	}, nil
}

func fromMillisInt(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
