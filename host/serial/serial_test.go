package serial

import (
	"io"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Device != "/dev/ttyACM0" || cfg.Baud != 115200 || cfg.ReadTimeout != 100 {
		t.Errorf("Unexpected default config: %+v", cfg)
	}
}

func TestOpenNilConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestPipe(t *testing.T) {
	host, device := Pipe()
	defer host.Close()
	defer device.Close()

	go func() {
		host.Write([]byte{0x05, 0x10, 0x9E, 0x81, 0x7E})
	}()

	buf := make([]byte, 5)
	if _, err := io.ReadFull(device, buf); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if buf[4] != 0x7E {
		t.Errorf("Unexpected bytes %x", buf)
	}
	if err := device.Flush(); err != nil {
		t.Errorf("Flush failed: %v", err)
	}
}
