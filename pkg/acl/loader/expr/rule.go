package expr

import (
	"sync"

	"github.com/bornholm/burpacl/pkg/acl/grant"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// Kind is the predicate a rule answers.
type Kind string

const (
	KindAdmin         Kind = "admin"
	KindModerator     Kind = "moderator"
	KindClientAllowed Kind = "client_allowed"
	KindClientRW      Kind = "client_rw"
	KindServerAllowed Kind = "server_allowed"
	KindServerRW      Kind = "server_rw"
)

var kinds = []Kind{KindAdmin, KindModerator, KindClientAllowed, KindClientRW, KindServerAllowed, KindServerRW}

// Env is exposed to rule scripts.
type Env struct {
	Username string   `expr:"username"`
	Client   string   `expr:"client"`
	Server   string   `expr:"server"`
	Groups   []string `expr:"groups"`
}

type Rule struct {
	kind    Kind
	script  string
	program *vm.Program

	compileOnce sync.Once
	compileErr  error
}

func (r *Rule) Kind() Kind {
	return r.kind
}

func (r *Rule) Exec(env Env) (bool, error) {
	program, err := r.getProgram()
	if err != nil {
		return false, errors.WithStack(err)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, errors.WithStack(err)
	}

	allowed, ok := result.(bool)
	if !ok {
		return false, errors.Errorf("unexpected rule '%s' result type '%T', expected boolean", r.script, result)
	}

	return allowed, nil
}

func (r *Rule) getProgram() (*vm.Program, error) {
	r.compileOnce.Do(func() {
		program, err := expr.Compile(r.script, expr.Env(Env{}), expr.AsBool(), WithRuleAPI())
		if err != nil {
			r.compileErr = errors.Wrapf(err, "could not compile %s rule '%s'", r.kind, r.script)
			return
		}

		r.program = program
	})
	if r.compileErr != nil {
		return nil, errors.WithStack(r.compileErr)
	}

	return r.program, nil
}

func (r *Rule) String() string {
	return r.script
}

func NewRule(kind Kind, script string) *Rule {
	return &Rule{kind: kind, script: script}
}

var globMatcher = grant.NewMatcher(true)

// WithRuleAPI exposes helper functions to rule scripts:
//
//	glob("db-*", client)
func WithRuleAPI() expr.Option {
	return expr.Function(
		"glob",
		func(params ...any) (any, error) {
			pattern, ok := params[0].(string)
			if !ok {
				return false, errors.Errorf("unexpected pattern type '%T'", params[0])
			}

			name, ok := params[1].(string)
			if !ok {
				return false, errors.Errorf("unexpected name type '%T'", params[1])
			}

			_, matched := globMatcher.Match([]string{pattern}, name)

			return matched, nil
		},
		new(func(string, string) bool),
	)
}
