package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skip2/go-qrcode"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

const qrIssuer = "ticketbottle-inventory"

type qrClaims struct {
	TicketID      string `json:"tid"`
	ReservationID string `json:"rid"`
	EventID       string `json:"eid"`
	Name          string `json:"name"`
	EventName     string `json:"event_name"`
	jwt.RegisteredClaims
}

// qrEncoder signs ticket payloads and renders them as PNG data URLs.
type qrEncoder struct {
	secret []byte
	size   int
}

func newQREncoder(secret string, size int) qrEncoder {
	if size <= 0 {
		size = 256
	}
	return qrEncoder{secret: []byte(secret), size: size}
}

func (q qrEncoder) Sign(t *models.Ticket) (string, error) {
	claims := qrClaims{
		TicketID:      t.ID,
		ReservationID: t.ReservationID,
		EventID:       t.EventID,
		Name:          t.Details.Name,
		EventName:     t.Details.EventName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       t.TicketID,
			Issuer:   qrIssuer,
			Subject:  t.UserID,
			IssuedAt: jwt.NewNumericDate(t.CreatedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(q.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign QR payload: %w", err)
	}
	return signed, nil
}

func (q qrEncoder) Parse(payload string) (*qrClaims, error) {
	var claims qrClaims
	_, err := jwt.ParseWithClaims(payload, &claims, func(t *jwt.Token) (any, error) {
		return q.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(qrIssuer),
		jwt.WithLeeway(time.Minute),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidQRCode, err)
	}
	if claims.TicketID == "" {
		return nil, ErrInvalidQRCode
	}
	return &claims, nil
}

// Image renders payload as a base64 PNG data URL.
func (q qrEncoder) Image(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, q.size)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
