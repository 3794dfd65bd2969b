package buttons

import "encoding/binary"

const evKey = 0x01

// Linux input-event-codes.h
const (
	keyEnter = 28
	keySpace = 57
	keyF2    = 60
	keyF3    = 61
	keyF4    = 62
	keyPower = 116
)

var keymap = map[uint16]Event{
	keyEnter: Tap,
	keySpace: Tap,
	keyF2:    ToggleAmbient,
	keyPower: ToggleAmbient,
	keyF3:    ToggleVisible,
	keyF4:    Exit,
}

// decodeEvents maps the key-down records in buf to events. Each input_event
// record is a timeval of tvSize bytes followed by u16 type, u16 code and s32
// value.
func decodeEvents(buf []byte, tvSize int) []Event {
	eventSize := tvSize + 8
	var out []Event
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		rec := buf[off : off+eventSize]
		typ := binary.LittleEndian.Uint16(rec[tvSize : tvSize+2])
		code := binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4])
		value := int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8]))
		if typ != evKey || value != 1 {
			continue
		}
		if ev, ok := keymap[code]; ok {
			out = append(out, ev)
		}
	}
	return out
}
