package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// EncodeVLQInt writes v in 7-bit groups, most significant first, with bit 7
// set on every byte but the last. Bits 5-6 of the first byte carry the sign,
// so a group is only emitted when v falls outside the range the remaining
// groups can express.
func EncodeVLQInt(output OutputBuffer, v int32) {
	var buf [5]byte
	n := 0
	for shift := 28; shift >= 7; shift -= 7 {
		lo := int32(1) << (shift - 2)
		if v < -lo || v >= 3*lo {
			buf[n] = byte(v>>shift)&0x7F | 0x80
			n++
		}
	}
	buf[n] = byte(v) & 0x7F
	output.Output(buf[:n+1])
}

// EncodeVLQUint sends v as its two's complement; the decoder undoes it.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt decodes one value and advances data past it. data is left
// untouched on error.
func DecodeVLQInt(data *[]byte) (int32, error) {
	b := *data
	if len(b) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32(b[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	i := 1
	for ; c&0x80 != 0; i++ {
		if i >= len(b) {
			return 0, ErrBufferTooSmall
		}
		c = uint32(b[i])
		v = v<<7 | c&0x7F
	}

	*data = b[i:]
	return int32(v), nil
}

func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQ returns the encoding of v.
func EncodeVLQ(v int32) []byte {
	out := NewScratchOutput()
	EncodeVLQInt(out, v)
	return out.Result()
}

// DecodeVLQ decodes the value at the start of data and reports how many
// bytes it used.
func DecodeVLQ(data []byte) (int32, int, error) {
	rest := data
	v, err := DecodeVLQInt(&rest)
	if err != nil {
		return 0, 0, err
	}
	return v, len(data) - len(rest), nil
}

// EncodeVLQBytes writes a length-prefixed byte string (%*s).
func EncodeVLQBytes(output OutputBuffer, data []byte) {
	EncodeVLQUint(output, uint32(len(data)))
	output.Output(data)
}

// DecodeVLQBytes returns a length-prefixed byte string. The result aliases
// data.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	b := *data
	n, err := DecodeVLQUint(&b)
	if err != nil {
		return nil, err
	}
	if uint32(len(b)) < n {
		return nil, ErrBufferTooSmall
	}
	*data = b[n:]
	return b[:n], nil
}

func EncodeVLQString(output OutputBuffer, s string) {
	EncodeVLQBytes(output, []byte(s))
}

func DecodeVLQString(data *[]byte) (string, error) {
	b, err := DecodeVLQBytes(data)
	return string(b), err
}
