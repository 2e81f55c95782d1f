package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"phone-otp-auth/backend/internal/attempt"
	"phone-otp-auth/backend/internal/attempt/domain"
)

// OPAEvaluator decides block status by evaluating a compiled Rego module.
type OPAEvaluator struct {
	query       rego.PreparedEvalQuery
	maxFailures int
}

var _ attempt.Policy = (*OPAEvaluator)(nil)

// NewOPAEvaluator compiles module (DefaultPolicy when empty). maxFailures is passed to the policy as
// input.max_failures; non-positive values use attempt.DefaultMaxFailures.
func NewOPAEvaluator(ctx context.Context, module string, maxFailures int) (*OPAEvaluator, error) {
	if module == "" {
		module = DefaultPolicy
	}
	if maxFailures <= 0 {
		maxFailures = attempt.DefaultMaxFailures
	}
	compiler, err := ast.CompileModules(map[string]string{"attempts.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile attempt policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(blockedQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare attempt policy: %w", err)
	}
	return &OPAEvaluator{query: q, maxFailures: maxFailures}, nil
}

// NewOPAEvaluatorFromFile reads a Rego module from path and compiles it.
func NewOPAEvaluatorFromFile(ctx context.Context, path string, maxFailures int) (*OPAEvaluator, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attempt policy: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b), maxFailures)
}

// Blocked evaluates the policy for w. An undefined or non-boolean result is an error.
func (e *OPAEvaluator) Blocked(ctx context.Context, w domain.Window) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(w, e.maxFailures)))
	if err != nil {
		return false, fmt.Errorf("eval attempt policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("attempt policy: %s is undefined", blockedQuery)
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("attempt policy: %s is %T, want bool", blockedQuery, rs[0].Expressions[0].Value)
	}
	return v, nil
}

// HealthCheck evaluates an empty window and expects an unblocked result.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	blocked, err := e.Blocked(ctx, domain.Window{Key: domain.Key{Kind: domain.KindLogin}})
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("attempt policy blocks an empty window")
	}
	return nil
}
