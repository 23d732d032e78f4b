package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestVLQKnownEncodings(t *testing.T) {
	testCases := []struct {
		value int32
		enc   []byte
	}{
		{0, []byte{0x00}},
		{95, []byte{0x5F}},
		{96, []byte{0x80, 0x60}},
		{127, []byte{0x80, 0x7F}},
		{-1, []byte{0x7F}},
		{-32, []byte{0x60}},
		{-33, []byte{0xFF, 0x5F}},
	}

	for _, tc := range testCases {
		if got := EncodeVLQ(tc.value); !bytes.Equal(got, tc.enc) {
			t.Errorf("EncodeVLQ(%d) = % X, want % X", tc.value, got, tc.enc)
		}
		v, n, err := DecodeVLQ(tc.enc)
		if err != nil || v != tc.value || n != len(tc.enc) {
			t.Errorf("DecodeVLQ(% X) = %d, %d, %v", tc.enc, v, n, err)
		}
	}
}

func TestVLQRoundTrip(t *testing.T) {
	values := []int32{1, -1000, 1000000, -1000000, 1 << 30, -(1 << 30)}
	for _, v := range values {
		data := EncodeVLQ(v)
		got, err := DecodeVLQInt(&data)
		if err != nil || got != v || len(data) != 0 {
			t.Errorf("round trip %d: got %d, err %v, %d bytes left", v, got, err, len(data))
		}
	}

	// Unsigned values above MaxInt32 travel as their two's complement.
	out := NewScratchOutput()
	EncodeVLQUint(out, 0xFFFFFFF0)
	data := out.Result()
	if got, err := DecodeVLQUint(&data); err != nil || got != 0xFFFFFFF0 {
		t.Errorf("uint round trip = %X, %v", got, err)
	}
}

func TestVLQBytesAndString(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQBytes(out, []byte{0xFF, 0xFE})
	EncodeVLQString(out, "PA5")
	EncodeVLQUint(out, 7)

	data := out.Result()
	b, err := DecodeVLQBytes(&data)
	if err != nil || !bytes.Equal(b, []byte{0xFF, 0xFE}) {
		t.Fatalf("bytes = % X, %v", b, err)
	}
	s, err := DecodeVLQString(&data)
	if err != nil || s != "PA5" {
		t.Fatalf("string = %q, %v", s, err)
	}
	if v, _ := DecodeVLQUint(&data); v != 7 {
		t.Errorf("trailing value = %d", v)
	}
}

func TestVLQBufferTooSmall(t *testing.T) {
	data := []byte{0x80} // continuation with nothing after it
	if _, err := DecodeVLQInt(&data); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}

	data = []byte{0x05, 0x01}
	if _, err := DecodeVLQBytes(&data); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("short byte array: got %v", err)
	}
}
