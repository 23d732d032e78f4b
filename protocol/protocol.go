// Package protocol implements the Klipper serial protocol: VLQ argument
// encoding, CRC16 framing and the firmware and host transports.
package protocol

// Version is the firmware version reported in the data dictionary.
const Version = "0.1.0"

// Frame layout: len, seq, payload..., crc_hi, crc_lo, 0x7E.
const (
	MessageMax         = 512 // size of a ScratchOutput
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// NextSequence returns the sequence byte following seq.
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
