package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rook-computer/watchface/internal/buttons"
	"github.com/rook-computer/watchface/internal/companion"
	"github.com/rook-computer/watchface/internal/render"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type displayResponse struct {
	Visible       bool `json:"visible"`
	Ambient       bool `json:"ambient"`
	LowBitAmbient bool `json:"lowBitAmbient"`
	AntiAlias     bool `json:"antiAlias"`
	Round         bool `json:"round"`
}

type clockResponse struct {
	Hour     string `json:"hour"`
	Minute   string `json:"minute"`
	Date     string `json:"date"`
	AmPm     string `json:"amPm"`
	TimeZone string `json:"timeZone"`
}

type weatherResponse struct {
	Received  bool       `json:"received"`
	MinTemp   string     `json:"minTemp"`
	MaxTemp   string     `json:"maxTemp"`
	HasIcon   bool       `json:"hasIcon"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type stateResponse struct {
	Display       displayResponse `json:"display"`
	TimerRunning  bool            `json:"timerRunning"`
	Clock         clockResponse   `json:"clock"`
	Weather       weatherResponse `json:"weather"`
	Taps          int             `json:"taps"`
	SyncConnected bool            `json:"syncConnected"`
}

// displayRequest changes only the fields that are present.
type displayRequest struct {
	Visible       *bool `json:"visible"`
	Ambient       *bool `json:"ambient"`
	LowBitAmbient *bool `json:"lowBitAmbient"`
	Round         *bool `json:"round"`
}

type tapRequest struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// RegisterAPIV1 mounts the API routes on r.
func RegisterAPIV1(r chi.Router, deps APIV1Deps) {
	deps = deps.withDefaults()
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) { handleState(w, r, deps) })
	r.Post("/weather", func(w http.ResponseWriter, r *http.Request) { handleWeatherPost(w, r, deps) })
	r.Delete("/weather", func(w http.ResponseWriter, r *http.Request) { handleWeatherDelete(w, r, deps) })
	r.Post("/display", func(w http.ResponseWriter, r *http.Request) { handleDisplay(w, r, deps) })
	r.Post("/tap", func(w http.ResponseWriter, r *http.Request) { handleTap(w, r, deps) })
	r.Get("/pairing.png", func(w http.ResponseWriter, r *http.Request) { handlePairing(w, r, deps) })
}

func handleState(w http.ResponseWriter, _ *http.Request, deps APIV1Deps) {
	if deps.Host == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "host not configured")
		return
	}
	st := deps.Host.Status()
	s := st.State

	resp := stateResponse{
		Display: displayResponse{
			Visible:       s.Mode.Visible,
			Ambient:       s.Mode.Ambient,
			LowBitAmbient: s.Mode.LowBitAmbient,
			AntiAlias:     s.Mode.AntiAlias,
			Round:         st.Round,
		},
		TimerRunning: st.TimerRunning,
		Weather: weatherResponse{
			Received: s.Weather.Received,
			MinTemp:  s.Weather.MinTemp,
			MaxTemp:  s.Weather.MaxTemp,
			HasIcon:  s.Weather.Icon != nil,
		},
		Taps:          s.TapCount,
		SyncConnected: st.SyncConnected,
	}
	if !s.Clock.Date.IsZero() {
		resp.Clock = clockResponse{
			Hour:     s.Clock.HourString(),
			Minute:   s.Clock.MinuteString(),
			Date:     deps.Formats.DateString(s.Clock),
			AmPm:     deps.Formats.AmPm(s.Clock.Hour),
			TimeZone: st.TimeZone,
		}
	}
	if s.Weather.Received {
		at := s.Weather.UpdatedAt
		resp.Weather.UpdatedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleWeatherPost(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.Weather == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "weather ingest not configured")
		return
	}
	var data map[string]any
	if err := decodeBody(w, r, &data); err != nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	deps.Weather.HandleEvent(companion.DataEvent{Type: companion.EventChanged, Path: deps.WeatherPath, Data: data})
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handleWeatherDelete(w http.ResponseWriter, _ *http.Request, deps APIV1Deps) {
	if deps.Weather == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "weather ingest not configured")
		return
	}
	deps.Weather.HandleEvent(companion.DataEvent{Type: companion.EventDeleted, Path: deps.WeatherPath})
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handleDisplay(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.Host == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "host not configured")
		return
	}
	var req displayRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Visible == nil && req.Ambient == nil && req.LowBitAmbient == nil && req.Round == nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", "no display field set")
		return
	}
	// Properties and insets first so an ambient change in the same request sees them.
	if req.LowBitAmbient != nil {
		deps.Host.SetLowBitAmbient(*req.LowBitAmbient)
	}
	if req.Round != nil {
		deps.Host.ApplyInsets(*req.Round)
	}
	if req.Visible != nil {
		deps.Host.SetVisible(*req.Visible)
	}
	if req.Ambient != nil {
		deps.Host.SetAmbient(*req.Ambient)
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handleTap(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.Host == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "host not configured")
		return
	}
	req := tapRequest{Type: buttons.TapTap.String()}
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	tapType, ok := buttons.ParseTapType(req.Type)
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "bad_tap_type", fmt.Sprintf("unknown tap type %q", req.Type))
		return
	}
	deps.Host.Tap(tapType, req.X, req.Y)
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handlePairing(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.PairingURL == "" {
		writeAPIError(w, http.StatusNotFound, "not_paired", "sync channel not configured")
		return
	}
	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > 1024 {
			writeAPIError(w, http.StatusBadRequest, "bad_size", "size must be between 64 and 1024")
			return
		}
		size = parsed
	}
	data, err := render.GenerateQRCodePNG(deps.PairingURL, size)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "qr_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func handleFrame(w http.ResponseWriter, _ *http.Request, frames FrameSource) {
	if frames == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "no frame source")
		return
	}
	var buf bytes.Buffer
	if err := frames.WritePNG(&buf); err != nil {
		if errors.Is(err, render.ErrNoFrame) {
			writeAPIError(w, http.StatusServiceUnavailable, "no_frame", err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
