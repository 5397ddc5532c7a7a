package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.debug/info/warn/error(msg)  — structured logging
//	engine.dice.roll(expr)                 — returns {expression, dice, modifier, total}
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetGlobal("engine", engine)

	logTbl := L.NewTable()
	L.SetField(engine, "log", logTbl)
	L.SetField(logTbl, "debug", L.NewFunction(m.luaLog(zap.DebugLevel)))
	L.SetField(logTbl, "info", L.NewFunction(m.luaLog(zap.InfoLevel)))
	L.SetField(logTbl, "warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	L.SetField(logTbl, "error", L.NewFunction(m.luaLog(zap.ErrorLevel)))

	diceTbl := L.NewTable()
	L.SetField(engine, "dice", diceTbl)
	L.SetField(diceTbl, "roll", L.NewFunction(m.luaDiceRoll))
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

// luaDiceRoll implements engine.dice.roll(expr). The returned table carries
// dice as the summed die results so total == dice + modifier holds in Lua.
func (m *Manager) luaDiceRoll(L *lua.LState) int {
	expr := L.CheckString(1)
	result, err := m.roller.RollExpr(expr)
	if err != nil {
		L.RaiseError("dice roll %q: %v", expr, err)
		return 0
	}

	diceSum := 0
	for _, d := range result.Dice {
		diceSum += d
	}

	tbl := L.NewTable()
	L.SetField(tbl, "expression", lua.LString(result.Expression))
	L.SetField(tbl, "dice", lua.LNumber(diceSum))
	L.SetField(tbl, "modifier", lua.LNumber(result.Modifier))
	L.SetField(tbl, "total", lua.LNumber(result.Total()))
	L.Push(tbl)
	return 1
}
