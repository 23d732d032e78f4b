// Command gpioctl drives the GPIO pins of an stm32io board from a
// terminal.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"stm32io/host/mcu"
	"stm32io/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	verbose = flag.Bool("verbose", false, "Print protocol progress")
)

var errQuit = errors.New("quit")

func main() {
	flag.Parse()

	conn := mcu.NewMCU()
	conn.Verbose = *verbose

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	fmt.Printf("Connecting to %s at %d baud...\n", cfg.Device, cfg.Baud)
	if err := conn.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		conn.Close()
		os.Exit(1)
	}
	fmt.Printf("Connected to %s (%s)\n", conn.GetDictionary().Config["MCU"], conn.GetDictionary().Version)

	sh := newShell(conn, os.Stdout)
	var err error
	if term.IsTerminal(int(os.Stdin.Fd())) {
		err = runTerminal(sh)
	} else {
		err = sh.run(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

// runTerminal reads commands with line editing and history.
func runTerminal(sh *shell) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "> ")
	sh.out = t
	fmt.Fprintln(t, "Type 'help' for commands.")
	for {
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if sh.handle(line) {
			return nil
		}
	}
}

// shell keeps the object ids handed out for each pin so repeated commands
// on a pin reuse them.
type shell struct {
	conn    *mcu.MCU
	out     io.Writer
	outputs map[string]uint8
	inputs  map[string]uint8
}

func newShell(conn *mcu.MCU, out io.Writer) *shell {
	return &shell{
		conn:    conn,
		out:     out,
		outputs: make(map[string]uint8),
		inputs:  make(map[string]uint8),
	}
}

// run reads commands from a pipe or file until quit or end of input.
func (s *shell) run(in io.Reader) error {
	fmt.Fprintln(s.out, "Type 'help' for commands.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if s.handle(scanner.Text()) {
			return nil
		}
	}
}

// handle executes one input line and reports whether the user quit.
func (s *shell) handle(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	err := s.execute(fields)
	if errors.Is(err, errQuit) {
		return true
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func (s *shell) execute(fields []string) error {
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		s.help()
		return nil
	case "dict":
		s.conn.PrintDictionary(s.out)
		return nil
	case "raw":
		fmt.Fprintf(s.out, "%s\n", s.conn.GetDictionaryRaw())
		return nil
	case "clock":
		clock, err := s.conn.GetClock()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "clock=%d\n", clock)
		return nil
	case "out":
		return s.output(args)
	case "in":
		return s.input(args)
	case "get":
		return s.get(args)
	case "port":
		return s.port(args)
	case "portcfg":
		return s.portConfig(args)
	}
	return fmt.Errorf("unknown command %q (type 'help')", cmd)
}

func (s *shell) help() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  out <pin> <0|1>                 drive an output pin")
	fmt.Fprintln(s.out, "  in <pin> [up|down]              configure an input pin")
	fmt.Fprintln(s.out, "  get <pin>                       read an input pin")
	fmt.Fprintln(s.out, "  port <A..H> [hex]               read a port, or write it")
	fmt.Fprintln(s.out, "  portcfg <A..H> <in|out> [up|down]  configure a whole port")
	fmt.Fprintln(s.out, "  clock                           read the MCU clock")
	fmt.Fprintln(s.out, "  dict | raw                      show the dictionary")
	fmt.Fprintln(s.out, "  quit")
}

// pinKey normalises a pin name so "pa5" and "PA5" share an oid.
func pinKey(name string) string {
	return strings.ToUpper(name)
}

func (s *shell) output(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: out <pin> <0|1>")
	}
	level, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("bad level %q", args[1])
	}
	key := pinKey(args[0])
	if oid, ok := s.outputs[key]; ok {
		return s.conn.SetPin(oid, level)
	}
	oid, err := s.conn.ConfigureOutput(args[0], level)
	if err != nil {
		return err
	}
	s.outputs[key] = oid
	delete(s.inputs, key)
	return nil
}

func (s *shell) input(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: in <pin> [up|down]")
	}
	pull := mcu.PullNone
	if len(args) == 2 {
		var err error
		if pull, err = mcu.ParsePull(args[1]); err != nil {
			return err
		}
	}
	oid, err := s.conn.ConfigureInput(args[0], pull)
	if err != nil {
		return err
	}
	key := pinKey(args[0])
	s.inputs[key] = oid
	delete(s.outputs, key)
	return nil
}

func (s *shell) get(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: get <pin>")
	}
	key := pinKey(args[0])
	oid, ok := s.inputs[key]
	if !ok {
		var err error
		if oid, err = s.conn.ConfigureInput(args[0], mcu.PullNone); err != nil {
			return err
		}
		s.inputs[key] = oid
	}
	level, err := s.conn.QueryPin(oid)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s=%d\n", key, boolToInt(level))
	return nil
}

func (s *shell) port(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: port <A..H> [hex]")
	}
	port, err := mcu.ParsePort(args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		value, err := strconv.ParseUint(strings.TrimPrefix(args[1], "0x"), 16, 16)
		if err != nil {
			return fmt.Errorf("bad value %q", args[1])
		}
		return s.conn.WritePort(port, uint16(value))
	}
	value, err := s.conn.QueryPort(port)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "port %s=0x%04X\n", strings.ToUpper(args[0]), value)
	return nil
}

func (s *shell) portConfig(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: portcfg <A..H> <in|out> [up|down]")
	}
	port, err := mcu.ParsePort(args[0])
	if err != nil {
		return err
	}
	var output bool
	switch args[1] {
	case "in":
	case "out":
		output = true
	default:
		return fmt.Errorf("bad direction %q", args[1])
	}
	pull := mcu.PullNone
	if len(args) == 3 {
		if pull, err = mcu.ParsePull(args[2]); err != nil {
			return err
		}
	}
	return s.conn.ConfigurePort(port, output, pull)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
