package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
)

func TestStateFields(t *testing.T) {
	at := time.Unix(1700000000, 0)
	v := &model.Vehicle{
		ID:         "v1",
		Plate:      "AB123CD",
		Status:     model.VehicleStatusMoving,
		Speed:      42,
		FuelLevel:  63.5,
		Position:   model.Position{Lat: 45.07, Lng: 7.68},
		LastUpdate: at,
	}

	fields := stateFields(v)
	assert.Equal(t, "moving", fields["status"])
	assert.Equal(t, 45.07, fields["lat"])
	assert.Equal(t, 7.68, fields["lng"])
	assert.Equal(t, int64(1700000000), fields["last_update"])
	assert.Equal(t, "vehicle:AB123CD:state", StateKey(v.Plate))
}
