package protocol

// InputBuffer is a queue of received bytes that the transport parses in
// place and consumes with Pop.
type InputBuffer interface {
	Data() []byte
	Available() int
	Pop(n int)
}

// OutputBuffer accumulates outgoing frames. Update and DataSince let the
// encoder patch the length byte and checksum a frame after writing it.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer is an InputBuffer over a fixed slice.
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	s.data = s.data[min(n, len(s.data)):]
}

// ScratchOutput is a fixed MessageMax-byte OutputBuffer. Writes past the
// end are truncated.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written since the last Reset.
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

func (s *ScratchOutput) Reset() { s.pos = 0 }

// Pop drops the first n bytes of the result, e.g. after a short write.
func (s *ScratchOutput) Pop(n int) {
	if n >= s.pos {
		s.pos = 0
		return
	}
	s.pos = copy(s.buf[:], s.buf[n:s.pos])
}

// FifoBuffer is a ring buffer between the serial reader and the
// transport. It implements InputBuffer.
type FifoBuffer struct {
	buf  []byte
	head int // index of the oldest byte
	n    int // bytes stored
}

func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count stored.
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		if f.n == len(f.buf) {
			break
		}
		f.buf[(f.head+f.n)%len(f.buf)] = b
		f.n++
		written++
	}
	return written
}

// Read moves up to len(data) bytes out of the buffer.
func (f *FifoBuffer) Read(data []byte) int {
	k := copy(data, f.Data())
	f.Pop(k)
	return k
}

func (f *FifoBuffer) Available() int { return f.n }

func (f *FifoBuffer) Free() int { return len(f.buf) - f.n }

func (f *FifoBuffer) IsEmpty() bool { return f.n == 0 }

// Data returns the buffered bytes in order. When the content wraps it is
// copied into a new slice so frames can be parsed contiguously.
func (f *FifoBuffer) Data() []byte {
	end := f.head + f.n
	if end <= len(f.buf) {
		return f.buf[f.head:end]
	}
	out := make([]byte, 0, f.n)
	out = append(out, f.buf[f.head:]...)
	return append(out, f.buf[:end-len(f.buf)]...)
}

// Pop discards the n oldest bytes.
func (f *FifoBuffer) Pop(n int) {
	n = min(n, f.n)
	if n == 0 {
		return
	}
	f.head = (f.head + n) % len(f.buf)
	f.n -= n
}

func (f *FifoBuffer) Reset() {
	f.head = 0
	f.n = 0
}
