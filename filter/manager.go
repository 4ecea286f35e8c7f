package filter

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Manager holds named filter presets
type Manager struct {
	compiler *Compiler
	presets  map[string]*Program
	mu       sync.RWMutex
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithCompiler sets the compiler presets are built with
func WithCompiler(compiler *Compiler) ManagerOption {
	return func(m *Manager) {
		m.compiler = compiler
	}
}

// NewManager creates an empty preset manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		compiler: NewCompiler(),
		presets:  make(map[string]*Program),
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Compile compiles an ad-hoc expression with the manager's compiler
func (m *Manager) Compile(expression string) (*Program, error) {
	return m.compiler.Compile(expression)
}

// Register compiles and stores a preset, replacing one with the same name
func (m *Manager) Register(name, expression string) error {
	program, err := m.compiler.Compile(expression)
	if err != nil {
		return fmt.Errorf("failed to compile preset '%s': %w", name, err)
	}

	m.mu.Lock()
	m.presets[presetKey(name)] = program
	m.mu.Unlock()
	return nil
}

// RegisterAll compiles every preset first and stores them only if all succeed
func (m *Manager) RegisterAll(presets map[string]string) error {
	compiled := make(map[string]*Program, len(presets))
	for _, name := range slices.Sorted(maps.Keys(presets)) {
		program, err := m.compiler.Compile(presets[name])
		if err != nil {
			return fmt.Errorf("failed to compile preset '%s': %w", name, err)
		}
		compiled[presetKey(name)] = program
	}

	m.mu.Lock()
	maps.Copy(m.presets, compiled)
	m.mu.Unlock()
	return nil
}

// Get returns a preset by name, ignoring case
func (m *Manager) Get(name string) (*Program, error) {
	m.mu.RLock()
	program, ok := m.presets[presetKey(name)]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	return program, nil
}

// presetKey normalizes preset names the way viper normalizes config keys
func presetKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names returns the registered preset names, sorted
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.presets))
}

// Resolve picks the program for a CLI invocation: an explicit expression
// wins over a preset name. Both empty yields a nil program, which matches
// everything.
func (m *Manager) Resolve(expression, preset string) (*Program, error) {
	switch {
	case expression != "":
		return m.Compile(expression)
	case preset != "":
		return m.Get(preset)
	default:
		return nil, nil
	}
}
