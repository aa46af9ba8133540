// Package hrm decodes the standard Bluetooth Heart Rate Measurement
// characteristic (0x2A37). Decoding is pure: the same byte sequence always
// yields the same Measurement, and a malformed sequence yields nothing.
package hrm

import (
	"encoding/binary"
	"errors"
	"time"
)

// ErrMalformedPayload is returned when a notification payload is shorter
// than the length implied by its own flags byte.
var ErrMalformedPayload = errors.New("hrm: malformed heart rate payload")

// Flags byte layout, Heart Rate Service 1.0 §3.1.1.1:
//
//	| 0x10 | 0x08 | 0x04  0x02 | 0x01 |
//	|  rr  | nrg  |  scs   cnt | fmt  |
const (
	flagFormat16Bit     = 0x01
	flagContactDetected = 0x02
	flagContactSupport  = 0x04
	flagEnergyExpended  = 0x08
	flagRRPresent       = 0x10
)

// Measurement is one decoded heart rate notification.
type Measurement struct {
	BPM              uint16
	Contact          bool
	ContactSupported bool
	EnergyExpended   int // kJ, -1 when the sensor did not report it
	RR               []time.Duration
}

// Decode parses a Heart Rate Measurement payload. Every field announced by
// the flags byte must be fully present; a truncated payload fails with
// ErrMalformedPayload.
func Decode(data []byte) (Measurement, error) {
	if len(data) < 2 {
		return Measurement{}, ErrMalformedPayload
	}

	flags := data[0]
	offset := 1

	var bpm uint16
	if flags&flagFormat16Bit != 0 {
		if len(data) < offset+2 {
			return Measurement{}, ErrMalformedPayload
		}
		bpm = binary.LittleEndian.Uint16(data[offset:])
		offset += 2
	} else {
		bpm = uint16(data[offset])
		offset++
	}

	energy := -1
	if flags&flagEnergyExpended != 0 {
		if len(data) < offset+2 {
			return Measurement{}, ErrMalformedPayload
		}
		energy = int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
	}

	var rr []time.Duration
	if flags&flagRRPresent != 0 {
		rrData := data[offset:]
		if len(rrData) < 2 || len(rrData)%2 != 0 {
			return Measurement{}, ErrMalformedPayload
		}
		rr = make([]time.Duration, 0, len(rrData)/2)
		for i := 0; i < len(rrData); i += 2 {
			// RR intervals are in units of 1/1024 s.
			rr = append(rr, time.Duration(binary.LittleEndian.Uint16(rrData[i:]))*time.Second/1024)
		}
	}

	return Measurement{
		BPM:              bpm,
		Contact:          flags&flagContactDetected != 0,
		ContactSupported: flags&flagContactSupport != 0,
		EnergyExpended:   energy,
		RR:               rr,
	}, nil
}
