package repository

import (
	"errors"
	"testing"
	"time"

	reservationserrors "spacebook/internal/reservations/errors"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildListFilter(t *testing.T) {
	now := time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter ListFilter
		want   bson.M
	}{
		{"empty", ListFilter{}, bson.M{}},
		{"owner", ListFilter{OwnerID: "alice"}, bson.M{"owner_id": "alice"}},
		{"upcoming on a space", ListFilter{SpaceID: "s1", EndsAfter: now}, bson.M{
			"space_id": "s1",
			"end_time": bson.M{"$gt": now},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildListFilter(tt.filter))
		})
	}
}

func TestObjectIDFromHex(t *testing.T) {
	_, err := objectIDFromHex("not-an-id")
	assert.True(t, errors.Is(err, reservationserrors.ErrInvalidID))

	_, err = objectIDFromHex("65a1b2c3d4e5f6a7b8c9d0e1")
	assert.NoError(t, err)
}
