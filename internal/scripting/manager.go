package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/rwpulley/charkeep/internal/game/dice"
)

// adjustHook is the Lua global a house-rule script defines to tweak derived
// snapshot numbers.
const adjustHook = "adjust_snapshot"

// Manager owns one sandboxed LState per house-rule set and exposes hook
// dispatch.
//
// Manager is safe for concurrent CallHook after all LoadRules calls
// complete. Each rule set's LState is single-threaded; the read lock
// serializes concurrent calls to the same set while allowing different sets
// to run concurrently.
type Manager struct {
	mu      sync.RWMutex
	states  map[string]*lua.LState
	cancels map[string]func()
	roller  *dice.Roller
	logger  *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty rule-set map.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting: NewManager precondition violated: roller must be non-nil")
	}
	if logger == nil {
		panic("scripting: NewManager precondition violated: logger must be non-nil")
	}
	return &Manager{
		states:  make(map[string]*lua.LState),
		cancels: make(map[string]func()),
		roller:  roller,
		logger:  logger,
	}
}

// LoadRules creates a sandboxed VM for rulesID, registers all engine.*
// modules, then executes every *.lua file in scriptDir in lexicographic
// order.
//
// Precondition: rulesID must be non-empty; scriptDir must be a readable directory.
// Postcondition: Rule-set VM is registered; returns error on Lua load failure.
func (m *Manager) LoadRules(rulesID, scriptDir string, instLimit int) error {
	L := NewSandboxedState(instLimit)
	cancel := func() {}
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, rulesID, err)
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
			return fmt.Errorf("scripting: loading %q for %q: %w", path, rulesID, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[rulesID]; ok {
		if oldCancel := m.cancels[rulesID]; oldCancel != nil {
			oldCancel()
		}
		old.Close()
	}
	m.states[rulesID] = L
	m.cancels[rulesID] = cancel
	m.mu.Unlock()
	return nil
}

// HasRules reports whether a VM is loaded for rulesID.
func (m *Manager) HasRules(rulesID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[rulesID]
	return ok
}

// CallHook calls the named Lua global function in rulesID's VM. Returns
// (LNil, nil) if the hook is not defined or no VM exists. Lua runtime errors
// are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(rulesID, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	L, ok := m.states[rulesID]
	m.mu.RUnlock()

	if !ok {
		m.logger.Info("scripting: no VM for rule set",
			zap.String("rules", rulesID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("rules", rulesID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// SnapshotAdjust calls the adjust_snapshot hook with a table built from
// values and returns the integer fields of the table it returns. A missing
// hook, missing VM, or non-table return yields an empty map and no error.
//
// Postcondition: every value in the returned map came from an integer field
// of the Lua return table.
func (m *Manager) SnapshotAdjust(rulesID string, values map[string]int) (map[string]int, error) {
	m.mu.RLock()
	L, ok := m.states[rulesID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	tbl := L.NewTable()
	for k, v := range values {
		L.SetField(tbl, k, lua.LNumber(v))
	}

	ret, err := m.CallHook(rulesID, adjustHook, tbl)
	if err != nil {
		return nil, err
	}
	retTbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, nil
	}

	out := make(map[string]int)
	retTbl.ForEach(func(k, v lua.LValue) {
		key, kok := k.(lua.LString)
		num, vok := v.(lua.LNumber)
		if kok && vok {
			out[string(key)] = int(num)
		}
	})
	return out, nil
}

// Close shuts down every loaded VM. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, L := range m.states {
		if cancel := m.cancels[id]; cancel != nil {
			cancel()
		}
		L.Close()
		delete(m.states, id)
		delete(m.cancels, id)
	}
}
