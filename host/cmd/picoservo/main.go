package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"picoservo/config"
	"picoservo/core"
	"picoservo/host/mcu"
	"picoservo/host/serial"
	"picoservo/sim"
)

var (
	device     = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud       = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	configPath = flag.String("config", "", "Configuration file (.yaml, .yml or .json)")
	simulate   = flag.Bool("sim", false, "Run against an in-process simulated board")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()

	fmt.Println("picoservo - PWM and servo control for RP2040 boards")
	fmt.Println("====================================================")
	fmt.Println()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
		logger.Infow("loaded configuration", "path", *configPath,
			"outputs", len(cfg.Outputs), "servos", len(cfg.Servos))
	}

	mcuConn := mcu.NewMCU()
	if *simulate {
		startSim(mcuConn, logger)
	} else {
		fmt.Printf("Connecting to MCU on %s...\n", *device)
		serialCfg := serial.DefaultConfig(*device)
		serialCfg.Baud = *baud
		if err := mcuConn.ConnectWithConfig(serialCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
			os.Exit(1)
		}
		logger.Infow("connected", "device", *device, "baud", *baud)
	}
	defer mcuConn.Close()

	s := newSession(mcuConn, os.Stdout, logger)
	if err := s.configure(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Configured %d outputs\n\n", len(s.order))

	// Interactive command loop
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := s.execute(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if quit {
			fmt.Println("Goodbye!")
			return
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// startSim attaches mcuConn to a simulated board running in a goroutine.
// With -verbose the board's trace lines are logged at debug level.
func startSim(mcuConn *mcu.MCU, logger *zap.SugaredLogger) {
	if *verbose {
		board := logger.Named("sim")
		core.SetDebugWriter(func(s string) { board.Debug(s) })
		core.SetDebugEnabled(true)
	}

	hostPort, devicePort := serial.Pipe()
	dev := sim.NewDevice(sim.NewBackend())
	go func() {
		if err := dev.Serve(devicePort); err != nil {
			logger.Errorw("simulated board stopped", "error", err)
		}
	}()

	mcuConn.Attach(hostPort)
	fmt.Println("Running against simulated board")
}
