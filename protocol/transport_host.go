package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrTransportClosed is returned once Close has been called
var ErrTransportClosed = errors.New("transport stopped")

// HostTransport handles the protocol from the host side.
// It inverts Transport: sends commands, waits for ACKs, receives responses.
type HostTransport struct {
	port io.ReadWriteCloser

	// Sequence of the next frame to send (0x10-0x1F)
	seqMu      sync.Mutex
	currentSeq uint8

	scanner     *Scanner
	inputBuffer *FifoBuffer

	ackChan      chan Message
	responseChan chan Message

	writeMutex sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport creates a host-side transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   MessageDest,
		scanner:      NewScanner(),
		inputBuffer:  NewFifoBuffer(1024),
		ackChan:      make(chan Message, 1),
		responseChan: make(chan Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}

	go t.readLoop()

	return t
}

// SendCommand sends a command to the device and waits for its ACK
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

// SendCommandWithTimeout sends a command with a custom ACK timeout
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	seq := t.sequence()
	msg, err := BuildCommandFrame(seq, cmdID, args)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}

	return t.waitForAck(seq, timeout)
}

// BuildCommandFrame constructs a complete frame carrying one command
func BuildCommandFrame(seq uint8, cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	payload := scratch.Result()
	if len(payload) > MessagePayloadMax {
		return nil, fmt.Errorf("message too long: %d bytes (max %d)", len(payload)+MessageLengthMin, MessageLengthMax)
	}

	frame := NewScratchOutput()
	EncodeFrameFunc(frame, seq, func(o OutputBuffer) { o.Output(payload) })

	out := make([]byte, len(frame.Result()))
	copy(out, frame.Result())
	return out, nil
}

// waitForAck waits for the ACK of the frame sent with seq
func (t *HostTransport) waitForAck(seq uint8, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	expected := NextSequence(seq)
	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence != expected {
				// Stale ack or NAK for an earlier frame; keep waiting
				continue
			}
			t.setSequence(expected)
			return nil

		case <-timer.C:
			return fmt.Errorf("ACK timeout after %v", timeout)

		case <-t.stopChan:
			return ErrTransportClosed
		}
	}
}

// ReceiveResponse waits for the next response message
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-timer.C:
		return Message{}, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stopChan:
		return Message{}, ErrTransportClosed
	}
}

// PollResponse returns a queued response without waiting
func (t *HostTransport) PollResponse() (Message, bool) {
	select {
	case resp := <-t.responseChan:
		return resp, true
	default:
		return Message{}, false
	}
}

// readLoop continuously reads from the port and dispatches frames
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			t.inputBuffer.Write(buffer[:n])
			consumed := t.scanner.Scan(t.inputBuffer.Data(), t.dispatchMessage, nil)
			t.inputBuffer.Pop(consumed)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// dispatchMessage routes a message to the ACK or response channel
func (t *HostTransport) dispatchMessage(msg Message) {
	// Payload aliases the input buffer, which is reused
	payload := make([]byte, len(msg.Payload))
	copy(payload, msg.Payload)
	msg.Payload = payload

	if msg.IsAck() {
		select {
		case t.ackChan <- msg:
		default:
			// Replace an unread ack with the newer one
			select {
			case <-t.ackChan:
			default:
			}
			t.ackChan <- msg
		}
		return
	}

	select {
	case t.responseChan <- msg:
	default:
		// Response channel full, drop oldest
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the transport and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// CurrentSequence returns the sequence of the next frame to send
func (t *HostTransport) CurrentSequence() uint8 {
	return t.sequence()
}

func (t *HostTransport) sequence() uint8 {
	t.seqMu.Lock()
	defer t.seqMu.Unlock()
	return t.currentSeq
}

func (t *HostTransport) setSequence(seq uint8) {
	t.seqMu.Lock()
	t.currentSeq = seq
	t.seqMu.Unlock()
}
