package weather

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rook-computer/watchface/internal/companion"
)

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

// Store receives weather updates. It is only written from the UI loop.
type Store interface {
	SetTemperatures(minTemp, maxTemp string, at time.Time)
	SetIcon(icon image.Image)
}

// Ingestor applies companion payloads to the store. Temperatures are applied
// as soon as the loop runs; the icon is decoded on a background job whose
// result is posted back to the loop. A newer icon or Close cancels the job,
// and a cancelled job never touches the store.
type Ingestor struct {
	// Path is the data item path to accept, e.g. "/weather".
	Path    string
	Store   Store
	Decoder IconDecoder
	Clock   clockwork.Clock
	Logger  Logger
	// Post queues fn on the UI loop.
	Post func(fn func())
	// Invalidate requests a redraw. Called on the UI loop.
	Invalidate func()

	mu        sync.Mutex
	ctx       context.Context
	cancelAll context.CancelFunc
	cancelJob context.CancelFunc
	jobs      sync.WaitGroup
	closed    bool
}

func NewIngestor(path string, store Store, post func(func()), invalidate func()) *Ingestor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Ingestor{
		Path:       path,
		Store:      store,
		Decoder:    ImageDecoder{},
		Clock:      clockwork.NewRealClock(),
		Post:       post,
		Invalidate: invalidate,
		ctx:        ctx,
		cancelAll:  cancel,
	}
}

// HandleEvent is a companion.Listener. It may be called from any goroutine.
func (in *Ingestor) HandleEvent(ev companion.DataEvent) {
	if in.Path != "" && ev.Path != in.Path {
		return
	}
	switch ev.Type {
	case companion.EventChanged:
		if err := in.OnPayloadReceived(ev.Data); err != nil {
			in.errorf("dropping update on %s: %v", ev.Path, err)
		}
	case companion.EventDeleted:
		in.infof("data item %s deleted", ev.Path)
	}
}

// OnPayloadReceived decodes and applies one payload. It may be called from any
// goroutine. Fields that cannot be read are logged and applied as absent: a
// bad temperature shows as "0°" and a payload with no usable icon keeps
// whatever icon is displayed.
func (in *Ingestor) OnPayloadReceived(data map[string]any) error {
	p, err := DecodePayload(data)
	if err != nil {
		in.errorf("weather payload: %v", err)
	}
	return in.Apply(p)
}

// Apply posts the temperatures and starts the icon job for p.
func (in *Ingestor) Apply(p Payload) error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return errors.New("weather ingest closed")
	}
	in.mu.Unlock()

	minTemp, maxTemp := FormatTemperature(p.MinTemp), FormatTemperature(p.MaxTemp)
	at := in.now()
	in.post(func() {
		in.Store.SetTemperatures(minTemp, maxTemp, at)
		in.invalidate()
	})

	if p.HasIcon() {
		in.startDecode(p.Icon)
	}
	return nil
}

func (in *Ingestor) startDecode(raw []byte) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	if in.ctx == nil {
		in.ctx, in.cancelAll = context.WithCancel(context.Background())
	}
	if in.cancelJob != nil {
		in.cancelJob()
	}
	ctx, cancel := context.WithCancel(in.ctx)
	in.cancelJob = cancel

	decoder := in.Decoder
	if decoder == nil {
		decoder = ImageDecoder{}
	}

	in.jobs.Add(1)
	go func() {
		defer in.jobs.Done()
		img, err := decoder.Decode(ctx, raw)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			in.errorf("%v; keeping previous icon", err)
			return
		}
		in.post(func() {
			if ctx.Err() != nil {
				return
			}
			in.Store.SetIcon(img)
			in.invalidate()
		})
	}()
}

// Close cancels any in-flight decode and waits for it to finish. Results
// already posted to the loop are dropped when they run.
func (in *Ingestor) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	if in.cancelAll != nil {
		in.cancelAll()
	}
	in.mu.Unlock()
	in.jobs.Wait()
}

func (in *Ingestor) now() time.Time {
	if in.Clock == nil {
		return time.Now()
	}
	return in.Clock.Now()
}

func (in *Ingestor) post(fn func()) {
	if in.Post == nil {
		fn()
		return
	}
	in.Post(fn)
}

func (in *Ingestor) invalidate() {
	if in.Invalidate != nil {
		in.Invalidate()
	}
}

func (in *Ingestor) infof(format string, args ...interface{}) {
	if in.Logger != nil {
		in.Logger.Infof("weather", format, args...)
	}
}

func (in *Ingestor) errorf(format string, args ...interface{}) {
	if in.Logger != nil {
		in.Logger.Errorf("weather", format, args...)
	}
}
