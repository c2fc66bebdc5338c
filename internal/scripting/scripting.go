// Package scripting exposes an optional Lua hook table so an operator
// can react to optimiser milestones (on_improve, on_autosave) without
// recompiling the core. Never required: a nil *Hooks is always safe to
// call into. Grounded on the teacher's debug_console.go command-table
// dispatch style, using github.com/yuin/gopher-lua the way the teacher
// embeds it for its own scripted test fixtures.
package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/zaynotley/rastaforge/internal/rlog"
)

var log = rlog.New("scripting")

// Hooks wraps one Lua state exposing an on_improve(evaluations, cost)
// and on_autosave(evaluations) global function table.
type Hooks struct {
	state *lua.LState
}

// Load compiles and runs script, registering whichever of on_improve /
// on_autosave global functions it defines. A script that defines
// neither is valid; its hooks are simply no-ops.
func Load(script string) (*Hooks, error) {
	l := lua.NewState()
	if err := l.DoString(script); err != nil {
		l.Close()
		return nil, fmt.Errorf("scripting: load: %w", err)
	}
	return &Hooks{state: l}, nil
}

// Close releases the Lua state.
func (h *Hooks) Close() {
	if h != nil && h.state != nil {
		h.state.Close()
	}
}

// OnImprove calls the script's on_improve(evaluations, cost) function
// if defined. Errors are logged, not propagated: a broken hook script
// must never stop the optimiser.
func (h *Hooks) OnImprove(evaluations uint64, cost float64) {
	h.call("on_improve", lua.LNumber(evaluations), lua.LNumber(cost))
}

// OnAutosave calls the script's on_autosave(evaluations) function if
// defined.
func (h *Hooks) OnAutosave(evaluations uint64) {
	h.call("on_autosave", lua.LNumber(evaluations))
}

func (h *Hooks) call(name string, args ...lua.LValue) {
	if h == nil || h.state == nil {
		return
	}
	fn, ok := h.state.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return
	}
	if err := h.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		log.Warnf("hook %s failed: %v", name, err)
	}
}
