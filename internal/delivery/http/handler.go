package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/realtime"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	pkgErrors "github.com/vogiaan1904/ticketbottle-inventory/pkg/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/response"
)

const maxBodyBytes = 1 << 20

type Config struct {
	WebhookSecret  string
	AllowedOrigins []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	// MaxSubscriptions caps the events one websocket may follow at once.
	MaxSubscriptions int
}

type Services struct {
	Catalog   service.CatalogService
	Inventory service.InventoryService
	Payment   service.PaymentService
	Tickets   service.TicketService
	Auth      service.AuthService
}

type Handler struct {
	catalog   service.CatalogService
	inventory service.InventoryService
	payment   service.PaymentService
	tickets   service.TicketService
	auth      service.AuthService
	bc        *realtime.Broadcaster
	cfg       Config
	l         logger.Logger
	validator *validator.Validate
	upgrader  websocket.Upgrader
}

func NewHandler(svcs Services, bc *realtime.Broadcaster, cfg Config, l logger.Logger) *Handler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.MaxSubscriptions <= 0 {
		cfg.MaxSubscriptions = 20
	}

	h := &Handler{
		catalog:   svcs.Catalog,
		inventory: svcs.Inventory,
		payment:   svcs.Payment,
		tickets:   svcs.Tickets,
		auth:      svcs.Auth,
		bc:        bc,
		cfg:       cfg,
		l:         l,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
	h.validator.RegisterTagNameFunc(jsonFieldName)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.cors)

	r.Get("/health", h.HealthCheck)
	r.Get("/ws", h.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments/webhook", h.PaymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Get("/events", h.ListEvents)
			r.Get("/events/{eventId}", h.GetEvent)
			r.Get("/events/{eventId}/availability", h.GetAvailability)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth)

				r.Post("/events/{eventId}/reservations", h.Reserve)
				r.Get("/reservations/{reservationId}", h.GetReservation)
				r.Post("/reservations/{reservationId}/cancel", h.CancelReservation)
				r.Post("/reservations/{reservationId}/checkout", h.Checkout)
				r.Get("/reservations/{reservationId}/payment", h.AwaitPayment)

				r.Get("/tickets", h.ListTickets)
				r.Get("/tickets/{ticketId}", h.GetTicket)
				r.Delete("/tickets/{ticketId}", h.InvalidateTicket)
				r.Post("/tickets/verify", h.VerifyTicket)
			})
		})
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "inventory-service",
	})
}

// decode reads a JSON body into dst and validates it. On failure the error
// response is already written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Error(w, errInvalidBody)
		return false
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			response.Error(w, errInvalidBody)
			return false
		}
	}
	return h.validate(w, dst)
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func (h *Handler) validate(w http.ResponseWriter, v any) bool {
	err := h.validator.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.Error(w, errInvalidBody)
		return false
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	response.ValidationError(w, fields)
	return false
}

// fail writes err and logs it when it maps to a 5xx.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	mapped := mapHTTPError(err)
	var httpErr *pkgErrors.HTTPError
	if !errors.As(mapped, &httpErr) {
		h.l.Errorf(r.Context(), "delivery.http.%s: %v", op, err)
	}
	response.Error(w, mapped)
}
