package protocol

import (
	"bytes"
	"testing"
)

func TestSliceInputBuffer(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})

	if buf.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", buf.Available())
	}

	buf.Pop(2)
	if buf.Available() != 3 || buf.Data()[0] != 3 {
		t.Errorf("After popping 2, expected [3 4 5], got %v", buf.Data())
	}

	buf.Pop(10)
	if buf.Available() != 0 {
		t.Errorf("Popping past the end should empty the buffer, %d left", buf.Available())
	}
}

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output([]byte{1, 2, 3})
	scratch.Output([]byte{4, 5})

	if scratch.CurPosition() != 5 {
		t.Errorf("Expected position 5, got %d", scratch.CurPosition())
	}

	scratch.Update(0, 99)
	if scratch.Result()[0] != 99 {
		t.Errorf("Expected first byte to be 99, got %d", scratch.Result()[0])
	}

	// Updates past the write position are ignored
	scratch.Update(7, 42)
	if scratch.CurPosition() != 5 {
		t.Errorf("Update past end changed position to %d", scratch.CurPosition())
	}

	if since := scratch.DataSince(2); !bytes.Equal(since, []byte{3, 4, 5}) {
		t.Errorf("DataSince(2) = %v, want [3 4 5]", since)
	}

	scratch.Reset()
	if len(scratch.Result()) != 0 {
		t.Errorf("Expected empty result after reset, got %d bytes", len(scratch.Result()))
	}
}

func TestFifoBufferWrap(t *testing.T) {
	fifo := NewFifoBuffer(8)

	if n := fifo.Write([]byte{1, 2, 3, 4, 5}); n != 5 {
		t.Fatalf("Expected 5 bytes written, got %d", n)
	}
	fifo.Pop(4)

	// Wraps around the end of the backing array
	if n := fifo.Write([]byte{6, 7, 8, 9, 10}); n != 5 {
		t.Fatalf("Expected 5 bytes written after pop, got %d", n)
	}

	if got := fifo.Data(); !bytes.Equal(got, []byte{5, 6, 7, 8, 9, 10}) {
		t.Errorf("Data() = %v, want [5 6 7 8 9 10]", got)
	}
	if fifo.Free() != 1 {
		t.Errorf("Expected 1 byte free, got %d", fifo.Free())
	}

	// Full: one slot always stays empty
	if n := fifo.Write([]byte{11, 12}); n != 1 {
		t.Errorf("Expected 1 byte written into full buffer, got %d", n)
	}

	fifo.Reset()
	if fifo.Available() != 0 {
		t.Errorf("Expected empty buffer after reset, got %d", fifo.Available())
	}
}
