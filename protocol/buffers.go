package protocol

// InputBuffer is the receive side seen by Transport.Receive: the bytes not
// yet parsed, and a way to drop the ones consumed.
type InputBuffer interface {
	Data() []byte
	Available() int
	Pop(n int)
}

// OutputBuffer is where frames are encoded. EncodeFrameFunc writes a
// placeholder length, then patches it and computes the CRC over the bytes
// written since the frame started.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer reads from a fixed byte slice
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

// ScratchOutput collects encoded frames in a fixed array. Bytes beyond
// OutputMax are dropped.
type ScratchOutput struct {
	buf [OutputMax]byte
	n   int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) { s.n += copy(s.buf[s.n:], data) }
func (s *ScratchOutput) CurPosition() int   { return s.n }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < 0 || pos >= s.n {
		return
	}
	s.buf[pos] = val
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > s.n {
		return nil
	}
	return s.buf[pos:s.n]
}

// Result is everything encoded since the last Reset
func (s *ScratchOutput) Result() []byte { return s.buf[:s.n] }

func (s *ScratchOutput) Reset() { s.n = 0 }

// FifoBuffer is the ring between the USB reader goroutine and the main
// loop. It holds at most one byte less than its capacity.
type FifoBuffer struct {
	ring  []byte
	head  int // index of the oldest byte
	count int
}

func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{ring: make([]byte, capacity)}
}

// Write stores the prefix of data that fits and returns its length
func (f *FifoBuffer) Write(data []byte) int {
	n := min(len(data), f.Free())
	for i := 0; i < n; i++ {
		f.ring[(f.head+f.count+i)%len(f.ring)] = data[i]
	}
	f.count += n
	return n
}

func (f *FifoBuffer) Available() int { return f.count }

// Free is how many more bytes Write will accept
func (f *FifoBuffer) Free() int { return len(f.ring) - 1 - f.count }

// Data returns the pending bytes in order. When they wrap past the end
// of the ring they are copied into a new slice.
func (f *FifoBuffer) Data() []byte {
	end := f.head + f.count
	if end <= len(f.ring) {
		return f.ring[f.head:end]
	}
	out := make([]byte, 0, f.count)
	out = append(out, f.ring[f.head:]...)
	return append(out, f.ring[:end-len(f.ring)]...)
}

func (f *FifoBuffer) Pop(n int) {
	n = min(n, f.count)
	f.head = (f.head + n) % len(f.ring)
	f.count -= n
}

func (f *FifoBuffer) Reset() {
	f.head, f.count = 0, 0
}
