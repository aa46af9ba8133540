package hrm

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDecode8BitValue(t *testing.T) {
	// flags=0x00: 8-bit value, no optional fields. 0x4B = 75 BPM.
	m, err := Decode([]byte{0x00, 0x4B})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.BPM != 75 {
		t.Errorf("BPM = %d, want 75", m.BPM)
	}
	if m.ContactSupported || m.Contact {
		t.Errorf("contact flags = %v/%v, want false/false", m.ContactSupported, m.Contact)
	}
	if m.EnergyExpended != -1 {
		t.Errorf("EnergyExpended = %d, want -1 (absent)", m.EnergyExpended)
	}
	if m.RR != nil {
		t.Errorf("RR = %v, want nil", m.RR)
	}
}

func TestDecode16BitValue(t *testing.T) {
	// flags=0x01: 16-bit value, little-endian. 0x012C = 300.
	m, err := Decode([]byte{0x01, 0x2C, 0x01})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.BPM != 300 {
		t.Errorf("BPM = %d, want 300", m.BPM)
	}
}

func TestDecode8And16BitAgree(t *testing.T) {
	// The same heart rate must decode identically regardless of value width.
	m8, err := Decode([]byte{0x00, 75})
	if err != nil {
		t.Fatalf("Decode(8-bit) error = %v", err)
	}
	m16, err := Decode([]byte{0x01, 75, 0x00})
	if err != nil {
		t.Fatalf("Decode(16-bit) error = %v", err)
	}
	if m8.BPM != m16.BPM {
		t.Errorf("8-bit BPM %d != 16-bit BPM %d", m8.BPM, m16.BPM)
	}
}

func TestDecodeSensorContact(t *testing.T) {
	tests := []struct {
		name      string
		flags     byte
		supported bool
		contact   bool
	}{
		{"not supported", 0x00, false, false},
		{"supported, no contact", 0x04, true, false},
		{"supported, contact", 0x06, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte{tt.flags, 80})
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if m.ContactSupported != tt.supported {
				t.Errorf("ContactSupported = %v, want %v", m.ContactSupported, tt.supported)
			}
			if m.Contact != tt.contact {
				t.Errorf("Contact = %v, want %v", m.Contact, tt.contact)
			}
		})
	}
}

func TestDecodeEnergyExpended(t *testing.T) {
	// flags=0x08: energy expended present. 0x0102 = 258 kJ.
	m, err := Decode([]byte{0x08, 80, 0x02, 0x01})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.EnergyExpended != 258 {
		t.Errorf("EnergyExpended = %d, want 258", m.EnergyExpended)
	}
}

func TestDecodeRRIntervals(t *testing.T) {
	// flags=0x10: RR intervals present, units of 1/1024 s.
	// 1024 -> 1s, 512 -> 500ms.
	m, err := Decode([]byte{0x10, 80, 0x00, 0x04, 0x00, 0x02})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []time.Duration{time.Second, 500 * time.Millisecond}
	if len(m.RR) != len(want) {
		t.Fatalf("len(RR) = %d, want %d", len(m.RR), len(want))
	}
	for i := range want {
		if m.RR[i] != want[i] {
			t.Errorf("RR[%d] = %v, want %v", i, m.RR[i], want[i])
		}
	}
}

func TestDecodeAllFields(t *testing.T) {
	// 16-bit value + contact + energy + one RR interval.
	m, err := Decode([]byte{0x1F, 75, 0x00, 0x64, 0x00, 0x00, 0x04})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.BPM != 75 {
		t.Errorf("BPM = %d, want 75", m.BPM)
	}
	if !m.Contact || !m.ContactSupported {
		t.Error("contact flags should both be set")
	}
	if m.EnergyExpended != 100 {
		t.Errorf("EnergyExpended = %d, want 100", m.EnergyExpended)
	}
	if len(m.RR) != 1 || m.RR[0] != time.Second {
		t.Errorf("RR = %v, want [1s]", m.RR)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"flags only", []byte{0x00}},
		{"16-bit value truncated", []byte{0x01, 0x4B}},
		{"energy truncated", []byte{0x08, 80, 0x02}},
		{"energy missing", []byte{0x08, 80}},
		{"rr flag without data", []byte{0x10, 80}},
		{"rr odd length", []byte{0x10, 80, 0x00, 0x04, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(tt.data)
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("Decode(%v) error = %v, want ErrMalformedPayload", tt.data, err)
			}
			if !reflect.DeepEqual(m, Measurement{}) {
				t.Errorf("Decode(%v) returned partial measurement %+v", tt.data, m)
			}
		})
	}
}

func TestDecodeDeterministic(t *testing.T) {
	data := []byte{0x1F, 75, 0x00, 0x64, 0x00, 0x00, 0x04}
	first, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode() error on repeat = %v", err)
		}
		if again.BPM != first.BPM || again.Contact != first.Contact ||
			again.EnergyExpended != first.EnergyExpended || len(again.RR) != len(first.RR) {
			t.Fatalf("repeat decode %+v differs from first %+v", again, first)
		}
	}
}
