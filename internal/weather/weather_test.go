package weather

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rook-computer/watchface/internal/companion"
	"github.com/rook-computer/watchface/internal/state"
)

func TestFormatTemperature(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{15.4, "15°"},
		{22.6, "23°"},
		{-1.5, "-1°"},
		{-1.6, "-2°"},
		{0.5, "1°"},
		{0, "0°"},
		{-0.4, "0°"},
		{math.NaN(), "0°"},
		{1e300, "9223372036854775807°"},
		{-1e300, "-9223372036854775808°"},
		{math.Inf(1), "9223372036854775807°"},
		{math.Inf(-1), "-9223372036854775808°"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatTemperature(tc.in), "input %v", tc.in)
	}
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePayload(t *testing.T) {
	raw := pngBytes(t, color.White)
	p, err := DecodePayload(map[string]any{
		KeyMinTemp: 11.2,
		KeyMaxTemp: "19.5",
		KeyIcon:    base64.StdEncoding.EncodeToString(raw),
		"other":    true,
	})
	require.NoError(t, err)
	assert.InDelta(t, 11.2, p.MinTemp, 1e-9)
	assert.InDelta(t, 19.5, p.MaxTemp, 1e-9)
	assert.Equal(t, Asset(raw), p.Icon)
	assert.True(t, p.HasIcon())

	p, err = DecodePayload(map[string]any{KeyIcon: ""})
	require.NoError(t, err)
	assert.Zero(t, p.MinTemp)
	assert.False(t, p.HasIcon())

	p, err = DecodePayload(map[string]any{KeyMinTemp: 15.4, KeyMaxTemp: 22.6, KeyIcon: "not base64!"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyIcon)
	assert.InDelta(t, 15.4, p.MinTemp, 1e-9)
	assert.InDelta(t, 22.6, p.MaxTemp, 1e-9)
	assert.False(t, p.HasIcon())

	p, err = DecodePayload(map[string]any{KeyMinTemp: "n/a", KeyMaxTemp: 22.6})
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyMinTemp)
	assert.Zero(t, p.MinTemp)
	assert.InDelta(t, 22.6, p.MaxTemp, 1e-9)
}

func TestImageDecoder(t *testing.T) {
	img, err := ImageDecoder{}.Decode(context.Background(), pngBytes(t, color.Black))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())

	_, err = ImageDecoder{}.Decode(context.Background(), []byte("garbage"))
	assert.Error(t, err)
}

type loop struct {
	posted chan func()
}

func newLoop() *loop { return &loop{posted: make(chan func(), 32)} }

func (l *loop) post(fn func()) { l.posted <- fn }

func (l *loop) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("nothing posted")
	}
}

func (l *loop) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case <-l.posted:
		t.Fatal("unexpected post")
	case <-time.After(50 * time.Millisecond):
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Infof(_ string, format string, _ ...interface{}) {
	l.mu.Lock()
	l.infos = append(l.infos, format)
	l.mu.Unlock()
}

func (l *recordingLogger) Errorf(_ string, format string, _ ...interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, format)
	l.mu.Unlock()
}

func (l *recordingLogger) counts() (infos, errors int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.infos), len(l.errors)
}

func newTestIngestor(l *loop, store *state.Store, redraws *int) *Ingestor {
	in := NewIngestor("/weather", store, l.post, func() { *redraws++ })
	in.Clock = clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	in.Logger = &recordingLogger{}
	return in
}

func TestIngestAppliesTemperaturesThenIcon(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, store, redraws := newLoop(), state.NewStore(), 0
	in := newTestIngestor(l, store, &redraws)
	defer in.Close()

	require.NoError(t, in.OnPayloadReceived(map[string]any{
		KeyMinTemp: 15.4,
		KeyMaxTemp: 22.6,
		KeyIcon:    base64.StdEncoding.EncodeToString(pngBytes(t, color.White)),
	}))

	// nothing changes until the loop runs
	assert.False(t, store.Snapshot().Weather.Received)

	l.runNext(t)
	w := store.Snapshot().Weather
	assert.Equal(t, "15°", w.MinTemp)
	assert.Equal(t, "23°", w.MaxTemp)
	assert.True(t, w.Received)
	assert.Nil(t, w.Icon)
	assert.Equal(t, 1, redraws)

	l.runNext(t)
	assert.NotNil(t, store.Snapshot().Weather.Icon)
	assert.Equal(t, 2, redraws)
}

func TestIngestKeepsIconWhenAbsentOrMalformed(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, store, redraws := newLoop(), state.NewStore(), 0
	in := newTestIngestor(l, store, &redraws)
	defer in.Close()

	require.NoError(t, in.OnPayloadReceived(map[string]any{
		KeyIcon: base64.StdEncoding.EncodeToString(pngBytes(t, color.White)),
	}))
	l.runNext(t)
	l.runNext(t)
	icon := store.Snapshot().Weather.Icon
	require.NotNil(t, icon)

	require.NoError(t, in.OnPayloadReceived(map[string]any{KeyMinTemp: 3.0, KeyMaxTemp: 9.0}))
	l.runNext(t)
	assert.Same(t, icon, store.Snapshot().Weather.Icon)
	assert.Equal(t, "9°", store.Snapshot().Weather.MaxTemp)

	require.NoError(t, in.OnPayloadReceived(map[string]any{
		KeyIcon: base64.StdEncoding.EncodeToString([]byte("not an image")),
	}))
	l.runNext(t)
	l.assertIdle(t)
	assert.Same(t, icon, store.Snapshot().Weather.Icon)
	in.Close()
	_, errs := in.Logger.(*recordingLogger).counts()
	assert.Equal(t, 1, errs)
}

// gateDecoder blocks each decode until the gate for its first byte opens.
type gateDecoder struct {
	gates map[byte]chan struct{}
}

func (d gateDecoder) Decode(ctx context.Context, raw []byte) (image.Image, error) {
	select {
	case <-d.gates[raw[0]]:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: raw[0]})
	return img, nil
}

func TestNewerIconCancelsInFlightDecode(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, store, redraws := newLoop(), state.NewStore(), 0
	in := newTestIngestor(l, store, &redraws)
	released := make(chan struct{})
	close(released)
	in.Decoder = gateDecoder{gates: map[byte]chan struct{}{1: make(chan struct{}), 2: released}}

	require.NoError(t, in.Apply(Payload{Icon: Asset{1}}))
	require.NoError(t, in.Apply(Payload{Icon: Asset{2}}))

	l.runNext(t)
	l.runNext(t)
	l.runNext(t)
	l.assertIdle(t)

	icon := store.Snapshot().Weather.Icon
	require.NotNil(t, icon)
	assert.Equal(t, color.Gray{Y: 2}, icon.At(0, 0))
	in.Close()
}

func TestCloseDropsPostedIcon(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, store, redraws := newLoop(), state.NewStore(), 0
	in := newTestIngestor(l, store, &redraws)

	require.NoError(t, in.Apply(Payload{MaxTemp: 20, Icon: Asset(pngBytes(t, color.White))}))
	l.runNext(t)

	var iconPost func()
	select {
	case iconPost = <-l.posted:
	case <-time.After(2 * time.Second):
		t.Fatal("icon never posted")
	}
	in.Close()
	iconPost()

	assert.Nil(t, store.Snapshot().Weather.Icon)
	assert.Equal(t, 1, redraws)
	assert.Error(t, in.Apply(Payload{}))
}

func TestHandleEvent(t *testing.T) {
	l, store, redraws := newLoop(), state.NewStore(), 0
	in := newTestIngestor(l, store, &redraws)
	defer in.Close()
	logger := in.Logger.(*recordingLogger)

	in.HandleEvent(companion.DataEvent{Type: companion.EventChanged, Path: "/other", Data: map[string]any{KeyMaxTemp: 1.0}})
	l.assertIdle(t)

	in.HandleEvent(companion.DataEvent{Type: companion.EventDeleted, Path: "/weather"})
	l.assertIdle(t)
	infos, _ := logger.counts()
	assert.Equal(t, 1, infos)

	in.HandleEvent(companion.DataEvent{Type: companion.EventChanged, Path: "/weather", Data: map[string]any{KeyIcon: "%%%"}})
	l.assertIdle(t)
	_, errs := logger.counts()
	assert.Equal(t, 1, errs)

	in.HandleEvent(companion.DataEvent{Type: companion.EventChanged, Path: "/weather", Data: map[string]any{KeyMaxTemp: 30.5}})
	l.runNext(t)
	assert.Equal(t, "31°", store.Snapshot().Weather.MaxTemp)
	assert.Equal(t, "0°", store.Snapshot().Weather.MinTemp)
}

func TestIngestAppliesReadableFieldsOfBadPayload(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, store, redraws := newLoop(), state.NewStore(), 0
	in := newTestIngestor(l, store, &redraws)
	defer in.Close()

	require.NoError(t, in.OnPayloadReceived(map[string]any{
		KeyIcon: base64.StdEncoding.EncodeToString(pngBytes(t, color.White)),
	}))
	l.runNext(t)
	l.runNext(t)
	icon := store.Snapshot().Weather.Icon
	require.NotNil(t, icon)

	require.NoError(t, in.OnPayloadReceived(map[string]any{KeyMinTemp: "n/a", KeyMaxTemp: 22.6}))
	l.runNext(t)
	w := store.Snapshot().Weather
	assert.Equal(t, "0°", w.MinTemp)
	assert.Equal(t, "23°", w.MaxTemp)
	assert.True(t, w.Received)

	require.NoError(t, in.OnPayloadReceived(map[string]any{
		KeyMinTemp: 15.4,
		KeyMaxTemp: 22.6,
		KeyIcon:    "not base64!",
	}))
	l.runNext(t)
	l.assertIdle(t)
	w = store.Snapshot().Weather
	assert.Equal(t, "15°", w.MinTemp)
	assert.Equal(t, "23°", w.MaxTemp)
	assert.Same(t, icon, w.Icon)

	_, errs := in.Logger.(*recordingLogger).counts()
	assert.Equal(t, 2, errs)
}
