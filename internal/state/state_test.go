package state

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rook-computer/watchface/internal/display"
)

func TestNewStoreStartsWithoutWeather(t *testing.T) {
	snap := NewStore().Snapshot()
	assert.False(t, snap.Weather.Received)
	assert.Nil(t, snap.Weather.Icon)
	assert.True(t, snap.Mode.AntiAlias)
}

func TestSetTemperaturesKeepsIcon(t *testing.T) {
	store := NewStore()
	icon := image.NewRGBA(image.Rect(0, 0, 4, 4))
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	store.SetIcon(icon)
	store.SetTemperatures("15°", "23°", at)

	w := store.Snapshot().Weather
	assert.Equal(t, "15°", w.MinTemp)
	assert.Equal(t, "23°", w.MaxTemp)
	assert.True(t, w.Received)
	assert.Equal(t, at, w.UpdatedAt)
	assert.Same(t, icon, w.Icon)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.SetMode(display.Mode{Visible: true})
	snap := store.Snapshot()

	store.SetMode(display.Mode{Visible: false, Ambient: true})
	assert.True(t, snap.Mode.Visible)
	assert.True(t, store.Snapshot().Mode.Ambient)
}

func TestRecordTap(t *testing.T) {
	store := NewStore()
	assert.Equal(t, 1, store.RecordTap())
	assert.Equal(t, 2, store.RecordTap())
	assert.Equal(t, 2, store.Snapshot().TapCount)
}
