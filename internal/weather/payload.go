// Package weather turns companion data items into the weather shown on the
// face: rounded temperature strings and a decoded condition icon.
package weather

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Data item keys published by the phone app.
const (
	KeyMinTemp = "com.example.android.sunshine.key.temp.min"
	KeyMaxTemp = "com.example.android.sunshine.key.temp.max"
	KeyIcon    = "com.example.android.sunshine.key.icon"
)

// Asset is raw encoded image bytes. On the wire it is a base64 string.
type Asset []byte

// Payload is one weather reading. Missing or unreadable temperatures read as
// zero and a missing or unreadable icon is an empty Asset.
type Payload struct {
	MinTemp float64
	MaxTemp float64
	Icon    Asset
}

// HasIcon reports whether the payload carries icon bytes.
func (p Payload) HasIcon() bool { return len(p.Icon) > 0 }

// DecodePayload reads a data item map. Numbers may arrive as JSON numbers or
// numeric strings; unknown keys are ignored. Each field is decoded on its own:
// a value that cannot be read is left at its zero value and reported in the
// returned error, and the payload is still usable.
func DecodePayload(data map[string]any) (Payload, error) {
	var (
		p    Payload
		errs []error
		err  error
	)
	if p.MinTemp, err = decodeField[float64](data, KeyMinTemp); err != nil {
		errs = append(errs, err)
	}
	if p.MaxTemp, err = decodeField[float64](data, KeyMaxTemp); err != nil {
		errs = append(errs, err)
	}
	if p.Icon, err = decodeField[Asset](data, KeyIcon); err != nil {
		errs = append(errs, err)
	}
	return p, errors.Join(errs...)
}

func decodeField[T any](data map[string]any, key string) (T, error) {
	var out T
	v, ok := data[key]
	if !ok || v == nil {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       assetHook,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(v); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

var assetType = reflect.TypeOf(Asset(nil))

func assetHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != assetType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return Asset(nil), nil
		}
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("icon is not base64: %w", err)
		}
		return Asset(raw), nil
	case []byte:
		return Asset(v), nil
	}
	return data, nil
}

// FormatTemperature rounds half up to a whole degree and appends the degree
// sign: 15.4 is "15°", 22.6 is "23°" and -1.5 is "-1°". Values beyond the
// int64 range saturate; NaN reads as 0.
func FormatTemperature(v float64) string {
	if math.IsNaN(v) {
		v = 0
	}
	r := math.Floor(v + 0.5)
	var n int64
	switch {
	case r >= math.MaxInt64:
		n = math.MaxInt64
	case r <= math.MinInt64:
		n = math.MinInt64
	default:
		n = int64(r)
	}
	return fmt.Sprintf("%d°", n)
}
