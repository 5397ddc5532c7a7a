package dice

import "go.uber.org/zap"

// Roller is the server-side roller: it draws from a shared Source and
// leaves a debug log line per roll so disputed table rolls can be audited.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller wraps src with per-roll logging.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll rolls a parsed expression and logs the outcome.
func (r *Roller) Roll(expr Expression) (RollResult, error) {
	result, err := Roll(expr, r.src)
	if err != nil {
		return RollResult{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result, nil
}

// RollExpr parses and rolls expr in one step. The roll command, attack
// lines, and the Lua dice binding all come through here.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e)
}
