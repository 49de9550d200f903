package kafka

// Consumed from the payment service.
const (
	TopicPaymentSucceeded = "payment.succeeded"
	TopicPaymentFailed    = "payment.failed"
)

// Published by the inventory service.
const (
	TopicReservationHeld      = "reservation.held"
	TopicReservationReleased  = "reservation.released"
	TopicTicketIssued         = "ticket.issued"
	TopicTicketIssuanceFailed = "ticket.issuance_failed"
)
