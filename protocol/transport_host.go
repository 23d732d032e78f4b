package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrTransportClosed = errors.New("transport closed")
	ErrAckTimeout      = errors.New("ACK timeout")
	ErrNak             = errors.New("NAK from MCU")
	ErrMessageTooLong  = errors.New("message too long")
)

// ResponseHandler is called from the reader goroutine for every response.
type ResponseHandler func(cmdID uint16, data *[]byte) error

// Message is one received frame.
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // without header and trailer
	CRC      uint16
}

// HostTransport is the host side of the link: it numbers outgoing frames,
// waits for their ACK and queues responses.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq     uint32 // atomic; seq of the next frame to send
	isSynchronized uint32 // atomic bool

	inputBuffer *FifoBuffer

	ackChan      chan *Message
	responseChan chan *Message

	handlerMu       sync.RWMutex
	responseHandler ResponseHandler

	// sendMu serialises send+ACK so sequence numbers stay in step.
	sendMu    sync.Mutex
	closeOnce sync.Once

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts a reader goroutine on port.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:           port,
		currentSeq:     MessageDest,
		isSynchronized: 1,
		inputBuffer:    NewFifoBuffer(1024),
		ackChan:        make(chan *Message, 4),
		responseChan:   make(chan *Message, 32),
		stopChan:       make(chan struct{}),
		doneChan:       make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SendCommand sends a command and waits up to two seconds for its ACK.
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	seq := uint8(atomic.LoadUint32(&t.currentSeq))
	msg, err := buildCommandMessage(seq, cmdID, args)
	if err != nil {
		return err
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(msg) {
		return fmt.Errorf("short write: %d/%d bytes", n, len(msg))
	}

	return t.waitForAck(seq, timeout)
}

func buildCommandMessage(seq uint8, cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(cmdID))
	if args != nil {
		args(payload)
	}
	if n := MessageLengthMin + len(payload.Result()); n > MessageLengthMax {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLong, n, MessageLengthMax)
	}
	return EncodeMessage(seq, payload.Result()), nil
}

// waitForAck waits for the MCU to acknowledge the frame sent with seq.
// The MCU acknowledges with the next sequence it expects; anything else is
// a NAK.
func (t *HostTransport) waitForAck(seq uint8, timeout time.Duration) error {
	want := NextSequence(seq)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence == want {
				atomic.StoreUint32(&t.currentSeq, uint32(want))
				return nil
			}
			if ack.Sequence == seq {
				return fmt.Errorf("%w: MCU still expects 0x%02x", ErrNak, seq)
			}
			// Stale ACK from an earlier exchange.
		case <-timer.C:
			return fmt.Errorf("%w after %v", ErrAckTimeout, timeout)
		case <-t.stopChan:
			return ErrTransportClosed
		}
	}
}

// ReceiveResponse returns the next queued response.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stopChan:
		return nil, ErrTransportClosed
	}
}

// SetResponseHandler registers a callback run for every response before
// it is queued.
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	t.responseHandler = handler
	t.handlerMu.Unlock()
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			t.inputBuffer.Write(buf[:n])
			t.processMessages()
		}
		if err == nil {
			continue
		}
		select {
		case <-t.stopChan:
			return
		default:
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// processMessages pulls every complete frame out of the input buffer.
func (t *HostTransport) processMessages() {
	data := t.inputBuffer.Data()

	for len(data) > 0 {
		if !t.synchronized() {
			var ok bool
			if data, ok = skipToSync(data); ok {
				t.setSynchronized(true)
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

		msg := &Message{
			Length:   uint8(n),
			Sequence: data[MessagePositionSeq],
			Payload:  append([]byte(nil), framePayload(data, n)...),
			CRC:      uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1]),
		}
		data = data[n:]
		t.dispatchMessage(msg)
	}

	if consumed := t.inputBuffer.Available() - len(data); consumed > 0 {
		t.inputBuffer.Pop(consumed)
	}
}

// dispatchMessage routes empty frames to the ACK queue and everything
// else to the response handler and queue.
func (t *HostTransport) dispatchMessage(msg *Message) {
	if len(msg.Payload) == 0 {
		pushNewest(t.ackChan, msg)
		return
	}

	t.handlerMu.RLock()
	handler := t.responseHandler
	t.handlerMu.RUnlock()
	if handler != nil {
		payload := append([]byte(nil), msg.Payload...)
		if cmdID, err := DecodeVLQUint(&payload); err == nil {
			_ = handler(uint16(cmdID), &payload)
		}
	}

	pushNewest(t.responseChan, msg)
}

// pushNewest queues msg, dropping the oldest entry if ch is full. Only
// the reader goroutine sends on ch.
func pushNewest(ch chan *Message, msg *Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Close stops the reader and closes the port. Closing the port first
// unblocks a pending Read.
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// Reset restarts the sequence and drops queued messages.
func (t *HostTransport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.currentSeq, MessageDest)
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	for len(t.responseChan) > 0 {
		<-t.responseChan
	}
}

// GetCurrentSequence returns the sequence byte of the next frame.
func (t *HostTransport) GetCurrentSequence() uint8 {
	return uint8(atomic.LoadUint32(&t.currentSeq))
}

func (t *HostTransport) synchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *HostTransport) setSynchronized(val bool) {
	var v uint32
	if val {
		v = 1
	}
	atomic.StoreUint32(&t.isSynchronized, v)
}
