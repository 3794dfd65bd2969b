package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/rook-computer/watchface/internal/render"
	"github.com/rook-computer/watchface/internal/weather"
)

const iconSize = 96

// PayloadSink accepts a weather data item as the companion channel would deliver it.
type PayloadSink interface {
	OnPayloadReceived(data map[string]any) error
}

// DisplayHost is the part of the app a scenario reset touches.
type DisplayHost interface {
	SetVisible(visible bool)
	SetAmbient(ambient bool)
}

// Scenario is one canned weather report.
type Scenario struct {
	MinTemp float64
	MaxTemp float64
	// Icon draws the weather icon; nil sends no icon at all.
	Icon func(d render.Drawer)
}

var scenarios = map[string]Scenario{
	"sunny":   {MinTemp: 14.4, MaxTemp: 27.5, Icon: drawSun},
	"rainy":   {MinTemp: 6.2, MaxTemp: 11.8, Icon: drawRain},
	"no-icon": {MinTemp: -3.5, MaxTemp: 2.49},
}

type SimControl struct {
	Sink PayloadSink
	Host DisplayHost

	startupScenario string
	currentScenario atomic.Value // string
}

func NewSimControl(sink PayloadSink, host DisplayHost, startupScenario string) *SimControl {
	c := &SimControl{Sink: sink, Host: host, startupScenario: strings.TrimSpace(startupScenario)}
	if c.startupScenario == "" {
		c.startupScenario = "sunny"
	}
	c.currentScenario.Store("")
	return c
}

func (c *SimControl) Current() string { return c.currentScenario.Load().(string) }

func (c *SimControl) ApplyScenario(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.startupScenario
	}
	sc, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q", name)
	}
	data, err := sc.Payload()
	if err != nil {
		return err
	}
	if err := c.Sink.OnPayloadReceived(data); err != nil {
		return fmt.Errorf("scenario %s: %w", name, err)
	}
	c.currentScenario.Store(name)
	return nil
}

// Reset shows the face interactive again and replays the startup scenario.
func (c *SimControl) Reset() error {
	if c.Host != nil {
		c.Host.SetVisible(true)
		c.Host.SetAmbient(false)
	}
	return c.ApplyScenario(c.startupScenario)
}

// Payload builds the data item the phone would publish for this scenario.
func (sc Scenario) Payload() (map[string]any, error) {
	data := map[string]any{
		weather.KeyMinTemp: sc.MinTemp,
		weather.KeyMaxTemp: sc.MaxTemp,
	}
	if sc.Icon == nil {
		return data, nil
	}
	raw, err := renderIcon(sc.Icon)
	if err != nil {
		return nil, err
	}
	data[weather.KeyIcon] = base64.StdEncoding.EncodeToString(raw)
	return data, nil
}

func renderIcon(draw func(d render.Drawer)) ([]byte, error) {
	canvas := render.NewCanvas(iconSize, iconSize, render.NewFonts())
	canvas.FillBackground(color.Transparent)
	draw(canvas)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas.Image()); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSun(d render.Drawer) {
	c := float64(iconSize) / 2
	style := render.LineStyle{Color: color.RGBA{R: 0xff, G: 0xd5, B: 0x4f, A: 0xff}, Width: 4, AntiAlias: true}
	for i := 0; i < 48; i++ {
		a := float64(i) * 2 * math.Pi / 48
		r := 20.0
		if i%6 == 0 {
			r = 40
		}
		d.DrawLine(c, c, c+r*math.Cos(a), c+r*math.Sin(a), style)
	}
}

func drawRain(d render.Drawer) {
	cloud := render.LineStyle{Color: color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}, Width: 18, AntiAlias: true}
	d.DrawLine(24, 40, 72, 40, cloud)
	d.DrawLine(36, 28, 56, 28, cloud)

	drop := render.LineStyle{Color: color.RGBA{R: 0x90, G: 0xca, B: 0xf9, A: 0xff}, Width: 3, AntiAlias: true}
	for _, x := range []float64{30, 46, 62} {
		d.DrawLine(x+6, 58, x, 78, drop)
	}
}

func registerSimEndpoints(r chi.Router, control *SimControl) {
	r.Route("/sim", func(sim chi.Router) {
		sim.Post("/reset", func(w http.ResponseWriter, _ *http.Request) {
			if err := control.Reset(); err != nil {
				writeSimError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": control.Current()})
		})
		sim.Post("/scenario/{name}", func(w http.ResponseWriter, req *http.Request) {
			if err := control.ApplyScenario(chi.URLParam(req, "name")); err != nil {
				writeSimError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": control.Current()})
		})
		sim.Get("/scenarios", func(w http.ResponseWriter, _ *http.Request) {
			names := make([]string, 0, len(scenarios))
			for name := range scenarios {
				names = append(names, name)
			}
			writeSimJSON(w, http.StatusOK, map[string]any{"scenarios": names, "current": control.Current()})
		})
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
