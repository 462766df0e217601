package promo

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// programs caches compiled rules by source.
var programs sync.Map // map[string]*vm.Program

// CompileRule compiles a rule, which must evaluate to a bool over Context.
func CompileRule(source string) (*vm.Program, error) {
	if cached, ok := programs.Load(source); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(source, expr.Env(Context{}), expr.AsBool())
	if err != nil {
		return nil, err
	}
	programs.Store(source, program)
	return program, nil
}

// EvalRule runs the rule against rc. An empty rule always passes.
func EvalRule(source string, rc Context) (bool, error) {
	if source == "" {
		return true, nil
	}
	program, err := CompileRule(source)
	if err != nil {
		return false, errors.Wrap(err, "compiling rule")
	}
	out, err := expr.Run(program, rc)
	if err != nil {
		return false, errors.Wrap(err, "running rule")
	}
	ok, _ := out.(bool)
	return ok, nil
}
