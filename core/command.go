package core

import (
	"errors"
	"strings"
	"sync"
)

var ErrUnknownCommand = errors.New("unknown command ID")

// CommandHandler decodes its own arguments from data and advances it.
type CommandHandler func(data *[]byte) error

// Command is one entry of the message table. Responses (MCU to host) have
// a nil Handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument format, e.g. "oid=%c pin=%u"
	Handler CommandHandler
}

// Signature is the dictionary key: name followed by the format.
func (c *Command) Signature() string {
	if c.Format == "" {
		return c.Name
	}
	return c.Name + " " + c.Format
}

// CommandRegistry assigns sequential IDs in registration order.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

var globalRegistry = NewCommandRegistry()

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// RegisterCommand registers a command handler in the global registry.
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterResponse registers an MCU to host message.
func RegisterResponse(name string, format string) uint16 {
	return globalRegistry.Register(name, format, nil)
}

// Register adds a message to the table. Registering a name twice returns
// the existing ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++
	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id
	return id
}

func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler registered for cmdID.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		DebugPrintln("[CMD] unknown command ID " + itoa(int(cmdID)))
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// GetDictionary returns the message table as text, one signature per line
// in ID order.
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for i := uint16(0); i < r.nextID; i++ {
		if cmd, ok := r.commands[i]; ok {
			b.WriteString(cmd.Signature())
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// GetCommandsAndResponses splits the table into the two dictionary maps,
// keyed by signature.
func (r *CommandRegistry) GetCommandsAndResponses() (map[string]int, map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make(map[string]int)
	responses := make(map[string]int)
	for id, cmd := range r.commands {
		if cmd.Handler != nil {
			commands[cmd.Signature()] = int(id)
		} else {
			responses[cmd.Signature()] = int(id)
		}
	}
	return commands, responses
}

// DispatchCommand dispatches through the global registry.
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}

func GetCommandCount() int {
	return globalRegistry.Count()
}
