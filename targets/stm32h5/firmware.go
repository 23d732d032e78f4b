package stm32h5

import (
	"io"
	"sync"

	"stm32io/core"
	"stm32io/protocol"
)

const (
	inputBufferSize = 256

	// maxWriteFailures is how many failed flushes mark the link as lost.
	maxWriteFailures = 10
)

// Firmware is the command loop shared by the MCU image and host tests.
// Bytes from the link go in through Feed, possibly from another
// goroutine; Poll runs one pass of the loop and writes replies to the
// link writer.
type Firmware struct {
	mu sync.Mutex // guards in
	in *protocol.FifoBuffer

	out       *protocol.ScratchOutput
	transport *protocol.Transport
	link      io.Writer

	writeFailures uint32
	linkLost      bool

	// Counters for debugging; only touched by Poll.
	Received uint32
	Sent     uint32
	Errors   uint32
}

// NewFirmware builds the loop around link and installs its transport as
// the global response channel.
func NewFirmware(link io.Writer) *Firmware {
	f := &Firmware{
		in:   protocol.NewFifoBuffer(inputBufferSize),
		out:  protocol.NewScratchOutput(),
		link: link,
	}
	f.transport = protocol.NewTransport(f.out, core.DispatchCommand)
	f.transport.SetResetCallback(func() {
		f.out.Reset()
		core.ResetFirmwareState()
	})
	// The host expects the ACK before anything else it waits on.
	f.transport.SetFlushCallback(f.flush)
	core.SetGlobalTransport(f.transport)
	return f
}

// Boot registers the command set and pin table and builds the dictionary.
func Boot(drv core.GPIODriver, pinNames []string) {
	core.TimerInit()
	core.InitCoreCommands()
	core.InitGPIOCommands()
	Register(drv, pinNames)
	core.GetGlobalDictionary().BuildDictionary()
}

// Feed queues bytes received from the host and returns how many fit.
func (f *Firmware) Feed(data []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkLost && len(data) > 0 {
		// First bytes after a lost link start a fresh session.
		f.linkLost = false
		f.in.Reset()
		f.transport.Reset()
	}
	return f.in.Write(data)
}

// Poll advances the clock to now and runs one pass of the command loop:
// receive, flush, pending reset, timers.
func (f *Firmware) Poll(now uint32) {
	defer func() {
		if r := recover(); r != nil {
			f.Errors++
			core.DebugAsync("[LOOP] recovered from panic, input dropped")
			f.mu.Lock()
			f.in.Reset()
			f.mu.Unlock()
			f.out.Reset()
		}
	}()

	core.SetTime(now)

	f.mu.Lock()
	var data []byte
	if f.in.Available() > 0 {
		data = append(data, f.in.Data()...)
	}
	f.mu.Unlock()

	if len(data) > 0 {
		input := protocol.NewSliceInputBuffer(data)
		f.transport.Receive(input)
		f.Received++

		f.mu.Lock()
		f.in.Pop(len(data) - input.Available())
		f.mu.Unlock()
	}

	if len(f.out.Result()) > 0 {
		f.flush()
	}

	core.CheckPendingReset()
	core.ProcessTimers()
}

// flush writes pending output to the link. Bytes the link accepted are
// dropped at once, so a short write followed by an error resends only the
// tail. Output is dropped after repeated failures so a dead link cannot
// wedge the loop.
func (f *Firmware) flush() {
	for len(f.out.Result()) > 0 {
		n, err := f.link.Write(f.out.Result())
		if n > 0 {
			f.out.Pop(n)
		}
		if err != nil || n == 0 {
			f.writeFailures++
			if f.writeFailures > maxWriteFailures {
				f.writeFailures = 0
				f.out.Reset()
				f.mu.Lock()
				f.linkLost = true
				f.in.Reset()
				f.mu.Unlock()
				core.DebugAsync("[LINK] lost, output dropped")
			}
			return
		}
	}
	f.writeFailures = 0
	f.Sent++
}
