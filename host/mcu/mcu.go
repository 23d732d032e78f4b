// Package mcu talks to the firmware from the host: it fetches the data
// dictionary, resolves command and pin names through it and sends GPIO
// commands.
package mcu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"stm32io/host/serial"
	"stm32io/protocol"
)

// Every firmware registers these two first so the dictionary can be read
// before anything else is known.
const (
	identifyResponseID = 0
	identifyID         = 1

	identifyChunk = 40
	maxChunks     = 1000
)

var (
	ErrNotConnected   = errors.New("not connected to MCU")
	ErrNoDictionary   = errors.New("dictionary not loaded")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownPin     = errors.New("unknown pin")
)

// Dictionary is the parsed data dictionary.
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// Message is a command or response resolved from its dictionary entry.
type Message struct {
	ID     uint16
	Name   string
	Format string
	Params []string
}

func parseSignature(sig string, id int) Message {
	name, format, _ := strings.Cut(sig, " ")
	m := Message{ID: uint16(id), Name: name, Format: format}
	for _, field := range strings.Fields(format) {
		param, _, _ := strings.Cut(field, "=")
		m.Params = append(m.Params, param)
	}
	return m
}

// MCU is a connection to one microcontroller.
type MCU struct {
	transport *protocol.HostTransport
	port      io.ReadWriteCloser

	dictionary     *Dictionary
	dictionaryData []byte
	commands       map[string]Message
	responses      map[string]Message
	responsesByID  map[uint16]Message

	nextOID uint8

	// ResponseTimeout bounds the wait for a reply to a query.
	ResponseTimeout time.Duration

	// Verbose prints progress to Log.
	Verbose bool
	Log     io.Writer

	connected bool
}

func NewMCU() *MCU {
	return &MCU{
		ResponseTimeout: time.Second,
		Log:             os.Stdout,
	}
}

func (m *MCU) logf(format string, args ...any) {
	if m.Verbose && m.Log != nil {
		fmt.Fprintf(m.Log, format, args...)
	}
}

// Connect opens device with the default serial settings.
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	m.Attach(port)

	// A board that was just plugged in may still be booting.
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Attach runs the protocol over an already open link.
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.connected = true
}

func (m *MCU) Close() error {
	m.connected = false
	if m.transport == nil {
		return nil
	}
	return m.transport.Close()
}

func (m *MCU) IsConnected() bool {
	return m.connected
}

// RetrieveDictionary reads the dictionary with identify commands and
// indexes it.
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return ErrNotConnected
	}

	m.logf("Retrieving dictionary...\n")
	var buf bytes.Buffer
	offset := uint32(0)
	for i := 0; i < maxChunks; i++ {
		chunk, err := m.sendIdentify(offset, identifyChunk)
		if err != nil {
			return fmt.Errorf("dictionary chunk at %d: %w", offset, err)
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < identifyChunk {
			break
		}
	}
	m.logf("Dictionary: %d bytes\n", buf.Len())

	return m.loadDictionary(buf.Bytes())
}

func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	deadline := time.Now().Add(m.ResponseTimeout)
	for {
		resp, err := m.transport.ReceiveResponse(time.Until(deadline))
		if err != nil {
			return nil, fmt.Errorf("identify_response: %w", err)
		}
		payload := resp.Payload
		cmdID, err := protocol.DecodeVLQUint(&payload)
		if err != nil || cmdID != identifyResponseID {
			continue
		}
		respOffset, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		if respOffset != offset {
			return nil, fmt.Errorf("identify_response offset %d, want %d", respOffset, offset)
		}
		return protocol.DecodeVLQBytes(&payload)
	}
}

func (m *MCU) loadDictionary(data []byte) error {
	dict := &Dictionary{}
	if err := json.Unmarshal(data, dict); err != nil {
		return fmt.Errorf("parse dictionary: %w", err)
	}

	m.commands = make(map[string]Message, len(dict.Commands))
	for sig, id := range dict.Commands {
		msg := parseSignature(sig, id)
		m.commands[msg.Name] = msg
	}
	m.responses = make(map[string]Message, len(dict.Responses))
	m.responsesByID = make(map[uint16]Message, len(dict.Responses))
	for sig, id := range dict.Responses {
		msg := parseSignature(sig, id)
		m.responses[msg.Name] = msg
		m.responsesByID[msg.ID] = msg
	}

	m.dictionary = dict
	m.dictionaryData = data
	return nil
}

func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the dictionary JSON as received.
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// Command looks up a command by name.
func (m *MCU) Command(name string) (Message, error) {
	if m.dictionary == nil {
		return Message{}, ErrNoDictionary
	}
	msg, ok := m.commands[name]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return msg, nil
}

// PrintDictionary writes a summary of the dictionary to w.
func (m *MCU) PrintDictionary(w io.Writer) {
	if m.dictionary == nil {
		fmt.Fprintln(w, "No dictionary loaded")
		return
	}
	d := m.dictionary

	fmt.Fprintf(w, "Version: %s\n", d.Version)
	fmt.Fprintf(w, "Build:   %s\n", d.BuildVersions)

	fmt.Fprintln(w, "Config:")
	for _, k := range sortedKeys(d.Config) {
		fmt.Fprintf(w, "  %s = %s\n", k, d.Config[k])
	}

	printIDs := func(title string, ids map[string]int) {
		fmt.Fprintf(w, "%s (%d):\n", title, len(ids))
		sigs := sortedKeys(ids)
		sort.SliceStable(sigs, func(i, j int) bool { return ids[sigs[i]] < ids[sigs[j]] })
		for _, sig := range sigs {
			fmt.Fprintf(w, "  [%d] %s\n", ids[sig], sig)
		}
	}
	printIDs("Commands", d.Commands)
	printIDs("Responses", d.Responses)

	for _, name := range sortedKeys(d.Enumerations) {
		fmt.Fprintf(w, "Enumeration %s: %d values\n", name, len(d.Enumerations[name]))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SendCommand sends a command by name with pre-encoded arguments.
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if !m.connected {
		return ErrNotConnected
	}
	msg, err := m.Command(name)
	if err != nil {
		return err
	}
	if err := m.transport.SendCommand(msg.ID, args); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Send sends a command whose parameters are all integers, in dictionary
// order.
func (m *MCU) Send(name string, args ...uint32) error {
	msg, err := m.Command(name)
	if err != nil {
		return err
	}
	if len(args) != len(msg.Params) {
		return fmt.Errorf("%s: got %d arguments, want %d (%s)", name, len(args), len(msg.Params), msg.Format)
	}
	return m.SendCommand(name, func(output protocol.OutputBuffer) {
		for _, a := range args {
			protocol.EncodeVLQUint(output, a)
		}
	})
}

// WaitResponse returns the parameters of the next name response for which
// match returns true. Other responses are discarded.
func (m *MCU) WaitResponse(name string, match func(params map[string]uint32) bool) (map[string]uint32, error) {
	if m.dictionary == nil {
		return nil, ErrNoDictionary
	}
	want, ok := m.responses[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	deadline := time.Now().Add(m.ResponseTimeout)
	for {
		resp, err := m.transport.ReceiveResponse(time.Until(deadline))
		if err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", name, err)
		}
		payload := resp.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil || uint16(id) != want.ID {
			if err == nil {
				m.logf("skipping %s\n", m.responsesByID[uint16(id)].Name)
			}
			continue
		}
		params := make(map[string]uint32, len(want.Params))
		for _, p := range want.Params {
			v, err := protocol.DecodeVLQUint(&payload)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, p, err)
			}
			params[p] = v
		}
		if match == nil || match(params) {
			return params, nil
		}
	}
}

// Query sends a command and waits for the named response.
func (m *MCU) Query(response string, match func(map[string]uint32) bool, name string, args ...uint32) (map[string]uint32, error) {
	if err := m.Send(name, args...); err != nil {
		return nil, err
	}
	return m.WaitResponse(response, match)
}
