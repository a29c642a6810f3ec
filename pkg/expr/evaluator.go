package expr

import (
	"log/slog"
)

// Evaluator compiles formulas through a Parser. Compilation failures are
// logged and swallowed so a document keeps its last valid state.
type Evaluator struct {
	parser Parser
	logger *slog.Logger
	// OnCompile, when set, observes every compilation attempt.
	OnCompile func(formula string, err error)
}

// NewEvaluator returns an Evaluator. A nil logger uses slog.Default().
func NewEvaluator(parser Parser, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{parser: parser, logger: logger}
}

// Compile parses formula against scope.
func (ev *Evaluator) Compile(formula string, scope Scope) (Term, error) {
	if ev == nil || ev.parser == nil {
		return nil, ErrNoParser
	}
	return ev.parser.Parse(formula, scope)
}

func (ev *Evaluator) compile(formula string, scope Scope) (Term, bool) {
	term, err := ev.Compile(formula, scope)
	if ev != nil && ev.OnCompile != nil {
		ev.OnCompile(formula, err)
	}
	if err != nil {
		ev.log().Warn("formula compilation failed",
			slog.String("formula", formula),
			slog.String("scope", keyOf(scope).Node),
			slog.String("error", err.Error()))
		return nil, false
	}
	return term, true
}

func (ev *Evaluator) log() *slog.Logger {
	if ev == nil || ev.logger == nil {
		return slog.Default()
	}
	return ev.logger
}
