package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":     "abc",
		"bearer   abc  ": "abc",
		"Basic abc":      "",
		"abc":            "",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, BearerToken(in), in)
	}
}

func TestIdentityContext(t *testing.T) {
	assert.Equal(t, models.Identity{}, IdentityFrom(context.Background()))

	id := models.Identity{UserID: "u1", Role: models.RoleAdmin}
	assert.Equal(t, id, IdentityFrom(WithIdentity(context.Background(), id)))
}
