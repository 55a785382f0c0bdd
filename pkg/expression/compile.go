package expression

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/rlcone/ptm/pkg/config"
)

type evalContext struct {
	*config.Torrent
}

func (e *evalContext) RegexMatch(pattern string) bool {
	if e.Torrent == nil {
		return false
	}
	return e.Torrent.RegexMatch(pattern)
}

func (e *evalContext) RegexMatchAny(patternsStr string) bool {
	if e.Torrent == nil {
		return false
	}
	return e.Torrent.RegexMatchAny(patternsStr)
}

func (e *evalContext) RegexMatchAll(patternsStr string) bool {
	if e.Torrent == nil {
		return false
	}
	return e.Torrent.RegexMatchAll(patternsStr)
}

func Compile(ignores []string) (*Expressions, error) {
	exprEnv := &evalContext{}
	exp := new(Expressions)

	// compile ignores
	for _, ignoreExpr := range ignores {
		program, err := expr.Compile(ignoreExpr, expr.Env(exprEnv), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile ignore expression: %q: %w", ignoreExpr, err)
		}

		exp.Ignores = append(exp.Ignores, CompiledExpression{Program: program, Text: ignoreExpr})
	}

	return exp, nil
}
