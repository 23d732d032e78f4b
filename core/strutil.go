package core

// Decimal formatting for log lines and the dictionary, kept free of
// strconv so it stays out of the firmware image.

func appendUint(dst []byte, n uint64) []byte {
	var buf [20]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(dst, buf[i:]...)
}

func appendInt(dst []byte, n int64) []byte {
	if n < 0 {
		return appendUint(append(dst, '-'), uint64(-n))
	}
	return appendUint(dst, uint64(n))
}

func itoa(n int) string {
	return string(appendInt(nil, int64(n)))
}

func utoa(n uint32) string {
	return string(appendUint(nil, uint64(n)))
}

// valueToString renders a dictionary constant; unsupported types render
// empty.
func valueToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return itoa(val)
	case int32:
		return itoa(int(val))
	case int64:
		return string(appendInt(nil, val))
	case uint:
		return string(appendUint(nil, uint64(val)))
	case uint32:
		return utoa(val)
	case uint16:
		return utoa(uint32(val))
	case uint8:
		return utoa(uint32(val))
	}
	return ""
}
