package core

import (
	"sync"
)

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(data *[]byte) error

// Command represents a registered protocol command
type Command struct {
	ID      uint16
	Name    string
	Format  string // Argument format (e.g., "oid=%c pin=%u")
	Handler CommandHandler
}

// CommandRegistry maps command IDs to handlers.
// IDs come from the fixed table in the protocol package.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command to the registry, replacing any handler already
// registered under the same ID
func (r *CommandRegistry) Register(id uint16, name string, format string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.commands[id]; exists {
		delete(r.nameToID, old.Name)
	}
	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Lookup returns the ID registered for a command name
func (r *CommandRegistry) Lookup(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	return id, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the appropriate command handler.
// Response-only entries (nil handler) cannot be dispatched.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return newWrapped("unknown command ID: "+itoa(int(cmdID)), ErrUnknownCommand)
	}

	return cmd.Handler(data)
}
