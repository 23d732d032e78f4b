package protocol

import "sync/atomic"

// CommandHandler is called for every command decoded from a frame. It
// consumes its arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the MCU side of the link. It validates incoming frames,
// dispatches their commands in order and answers every frame with an
// ACK/NAK carrying the next sequence it expects.
type Transport struct {
	isSynchronized uint32 // atomic bool
	nextSequence   uint32 // atomic; next expected host seq, 0x10..0x1F

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
	flushCallback func()
}

func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		isSynchronized: 1,
		nextSequence:   MessageDest,
		output:         output,
		handler:        handler,
	}
}

// Receive consumes every complete frame from input. Partial frames are
// left in place for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.synchronized() {
			var ok bool
			if data, ok = skipToSync(data); ok {
				t.setSynchronized(true)
				t.encodeAckNak()
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		n, res := scanFrame(data)
		if res == scanNeedMore {
			break
		}
		if res == scanBad {
			t.setSynchronized(false)
			continue
		}

		seq := data[MessagePositionSeq]
		frame := framePayload(data, n)
		data = data[n:]

		expected := uint8(atomic.LoadUint32(&t.nextSequence))
		if seq == MessageDest && expected != MessageDest {
			// The host restarted its sequence: treat it as a new session.
			atomic.StoreUint32(&t.nextSequence, MessageDest)
			expected = MessageDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}

		if seq == expected {
			atomic.StoreUint32(&t.nextSequence, uint32(NextSequence(seq)))
			_ = t.dispatch(frame)
		}
		// Out-of-order frames are dropped; the ACK then acts as a NAK.
		t.encodeAckNak()
	}

	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

// dispatch runs every command in a frame. A handler error stops the rest
// of the frame but keeps the link synchronised.
func (t *Transport) dispatch(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.setSynchronized(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.setSynchronized(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			return err
		}
	}
	return nil
}

// encodeAckNak emits an empty frame and flushes it straight away; the
// host waits for the ACK before it looks at responses.
func (t *Transport) encodeAckNak() {
	ns := uint8(atomic.LoadUint32(&t.nextSequence))
	start := t.output.CurPosition()
	t.output.Output([]byte{0, ns})
	appendTrailer(t.output, start)

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame writes one frame whose payload is produced by frameData.
// Responses carry the same sequence byte as the pending ACK.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, uint8(atomic.LoadUint32(&t.nextSequence))})
	frameData(t.output)
	appendTrailer(t.output, start)
}

// SendCommand sends a message with the given ID and encoded arguments.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the power-on state, e.g. after the link dropped.
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.nextSequence, MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback registers a function run when the host restarts.
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback registers the function that pushes pending output to
// the wire.
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

func (t *Transport) synchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	var v uint32
	if val {
		v = 1
	}
	atomic.StoreUint32(&t.isSynchronized, v)
}
