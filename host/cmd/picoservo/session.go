package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"picoservo/config"
	"picoservo/host/mcu"
)

// output is a named object configured on the device
type output struct {
	name  string
	oid   uint8
	pin   uint32
	servo bool
}

// session maps configured names onto device objects and runs CLI commands
type session struct {
	mcu     *mcu.MCU
	out     io.Writer
	logger  *zap.SugaredLogger
	outputs map[string]*output
	order   []*output
}

func newSession(m *mcu.MCU, out io.Writer, logger *zap.SugaredLogger) *session {
	return &session{
		mcu:     m,
		out:     out,
		logger:  logger,
		outputs: make(map[string]*output),
	}
}

// configure declares every output and servo in cfg on the device.
// Objects get consecutive oids, outputs first.
func (s *session) configure(cfg config.Config) error {
	oid := uint8(len(s.order))
	for _, o := range cfg.Outputs {
		if err := s.mcu.ConfigPWM(oid, o.Pin, cfg.ClockDivider); err != nil {
			return fmt.Errorf("configure output %q: %w", o.Name, err)
		}
		s.add(&output{name: o.Name, oid: oid, pin: o.Pin})
		oid++
	}
	for _, sv := range cfg.Servos {
		if err := s.mcu.ConfigServo(oid, sv.Pin, sv.Calibration()); err != nil {
			return fmt.Errorf("configure servo %q: %w", sv.Name, err)
		}
		s.add(&output{name: sv.Name, oid: oid, pin: sv.Pin, servo: true})
		oid++
	}
	return nil
}

func (s *session) add(o *output) {
	s.logger.Debugw("configured", "name", o.name, "oid", o.oid, "pin", o.pin, "servo", o.servo)
	s.outputs[o.name] = o
	s.order = append(s.order, o)
}

func (s *session) lookup(name string) (*output, error) {
	o, ok := s.outputs[name]
	if !ok {
		return nil, fmt.Errorf("unknown output %q (type 'list' to see outputs)", name)
	}
	return o, nil
}

// execute runs one command line. quit is true when the session should end.
func (s *session) execute(line string) (quit bool, err error) {
	parts, err := shlex.Split(line)
	if err != nil {
		return false, fmt.Errorf("parse command: %w", err)
	}
	if len(parts) == 0 {
		return false, nil
	}

	cmd, args := parts[0], parts[1:]
	s.logger.Debugw("command", "cmd", cmd, "args", args)
	switch cmd {
	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		s.printHelp()

	case "list":
		for _, o := range s.order {
			kind := "pwm"
			if o.servo {
				kind = "servo"
			}
			fmt.Fprintf(s.out, "  %-12s %-5s oid=%d pin=%d\n", o.name, kind, o.oid, o.pin)
		}

	case "angle":
		o, v, err := s.target(args, 32)
		if err != nil {
			return false, err
		}
		if !o.servo {
			return false, fmt.Errorf("%q is not a servo", o.name)
		}
		return false, s.mcu.SetAngle(o.oid, uint32(v))

	case "duty":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: duty <name> <percent>")
		}
		o, err := s.lookup(args[0])
		if err != nil {
			return false, err
		}
		pct, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return false, fmt.Errorf("invalid percent %q", args[1])
		}
		return false, s.mcu.SetDuty(o.oid, float32(pct))

	case "ticks":
		o, v, err := s.target(args, 16)
		if err != nil {
			return false, err
		}
		return false, s.mcu.SetTicks(o.oid, uint16(v))

	case "enable", "disable":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <name>", cmd)
		}
		o, err := s.lookup(args[0])
		if err != nil {
			return false, err
		}
		return false, s.mcu.SetEnabled(o.oid, cmd == "enable")

	case "status":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: status <name>")
		}
		o, err := s.lookup(args[0])
		if err != nil {
			return false, err
		}
		st, err := s.mcu.Query(o.oid)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "%s: pin=%d slice=%d ticks=%d enabled=%v\n",
			o.name, st.Pin, st.Slice, st.Ticks, st.Enabled)

	default:
		return false, fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
	return false, nil
}

// target parses "<name> <unsigned value>" arguments
func (s *session) target(args []string, bits int) (*output, uint64, error) {
	if len(args) != 2 {
		return nil, 0, fmt.Errorf("usage: <command> <name> <value>")
	}
	o, err := s.lookup(args[0])
	if err != nil {
		return nil, 0, err
	}
	v, err := strconv.ParseUint(args[1], 10, bits)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid value %q", args[1])
	}
	return o, v, nil
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  angle <name> <deg>    - Turn a servo")
	fmt.Fprintln(s.out, "  duty <name> <pct>     - Set duty cycle in percent")
	fmt.Fprintln(s.out, "  ticks <name> <n>      - Set high-tick count (0-65535)")
	fmt.Fprintln(s.out, "  enable <name>         - Start the output's slice")
	fmt.Fprintln(s.out, "  disable <name>        - Stop the output's slice")
	fmt.Fprintln(s.out, "  status <name>         - Query output state")
	fmt.Fprintln(s.out, "  list                  - List configured outputs")
	fmt.Fprintln(s.out, "  help                  - Show this help message")
	fmt.Fprintln(s.out, "  quit/exit/q           - Exit the program")
	fmt.Fprintln(s.out)
}
