package protocol

type scanResult uint8

const (
	scanOK       scanResult = iota // data starts with a valid frame
	scanNeedMore                   // frame is incomplete
	scanBad                        // not a frame; resynchronise
)

// scanFrame checks whether data begins with a complete frame and returns
// its length. Leading sync bytes must already be stripped.
func scanFrame(data []byte) (int, scanResult) {
	if len(data) < MessageLengthMin {
		return 0, scanNeedMore
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return 0, scanBad
	}
	if data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return 0, scanBad
	}
	if len(data) < n {
		return 0, scanNeedMore
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return 0, scanBad
	}
	sent := [2]byte{data[n-MessageTrailerCRC], data[n-MessageTrailerCRC+1]}
	if sent != crcTrailer(data[:n-MessageTrailerSize]) {
		return 0, scanBad
	}
	return n, scanOK
}

// framePayload returns the bytes between header and trailer of a frame
// previously accepted by scanFrame.
func framePayload(frame []byte, n int) []byte {
	return frame[MessageHeaderSize : n-MessageTrailerSize]
}

// skipToSync drops everything up to and including the next sync byte.
// ok is false if there is none.
func skipToSync(data []byte) (rest []byte, ok bool) {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:], true
		}
	}
	return nil, false
}

// appendTrailer finishes the frame written to out since start by
// patching its length byte and appending CRC and sync.
func appendTrailer(out OutputBuffer, start int) {
	out.Update(start+MessagePositionLen, uint8(len(out.DataSince(start))+MessageTrailerSize))
	crc := crcTrailer(out.DataSince(start))
	out.Output([]byte{crc[0], crc[1], MessageValueSync})
}

// EncodeMessage builds a complete frame carrying payload.
func EncodeMessage(seq uint8, payload []byte) []byte {
	out := NewScratchOutput()
	out.Output([]byte{0, seq})
	out.Output(payload)
	appendTrailer(out, 0)
	return append([]byte(nil), out.Result()...)
}
