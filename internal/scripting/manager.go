package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/noirbyte/gumshoe/internal/game/command"
	"github.com/noirbyte/gumshoe/internal/game/effect"
)

// Manager owns one sandboxed LState per cartridge and dispatches hook
// functions declared by location and structure definitions. It implements
// command.HookRunner.
//
// The LState is single-threaded; the mutex serializes concurrent hook
// calls across players.
type Manager struct {
	mu     sync.Mutex
	state  *lua.LState
	cancel context.CancelFunc
	logger *zap.Logger

	// current is the invocation being serviced; valid only while mu is held.
	current *command.Invocation
	pending []effect.Effect
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Load creates a sandboxed VM, registers the engine.* module, then executes
// every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: the VM is ready for Run; returns error on Lua load failure.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.registerModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.state != nil {
		if m.cancel != nil {
			m.cancel()
		}
		m.state.Close()
	}
	m.state = L
	m.cancel = cancel
	m.mu.Unlock()
	return nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		if m.cancel != nil {
			m.cancel()
		}
		m.state.Close()
		m.state = nil
	}
}

// Run calls the named Lua global function for the given invocation and
// returns the effects the script queued. A missing hook returns (nil, nil);
// Lua runtime errors are returned for the caller to log.
//
// Postcondition: state mutations performed by the script are applied even
// when the script later fails; queued effects are discarded on failure.
func (m *Manager) Run(inv *command.Invocation, hook string) ([]effect.Effect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return nil, nil
	}
	fn := m.state.GetGlobal(hook)
	if fn == lua.LNil {
		return nil, nil
	}

	m.current = inv
	m.pending = nil
	defer func() {
		m.current = nil
		m.pending = nil
	}()

	if err := m.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}); err != nil {
		return nil, fmt.Errorf("scripting: hook %q: %w", hook, err)
	}
	return m.pending, nil
}
