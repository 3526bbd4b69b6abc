package alerts

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain"
	"bartally/pkg/logger"
)

// Service manages alert rules and evaluates them against stocktake lines.
type Service struct {
	repo Repository
	env  *cel.Env
}

// NewService creates the rule service with its CEL environment.
func NewService(repo Repository) (*Service, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("variance_qty", cel.DoubleType),
		cel.Variable("variance_pct", cel.DoubleType),
		cel.Variable("variance_value", cel.DoubleType),
		cel.Variable("counted_value", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}
	return &Service{repo: repo, env: env}, nil
}

// CheckExpression compiles an expression and verifies it yields a boolean.
func (s *Service) CheckExpression(expression string) error {
	_, err := s.compile(expression)
	return err
}

func (s *Service) compile(expression string) (cel.Program, error) {
	ast, iss := s.env.Compile(expression)
	if iss.Err() != nil {
		return nil, apperror.NewValidation("rule expression does not compile").
			WithDetail("expression", expression).
			WithDetail("error", iss.Err().Error())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, apperror.NewValidation("rule expression must yield a boolean").
			WithDetail("expression", expression).
			WithDetail("output_type", ast.OutputType().String())
	}
	prg, err := s.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build rule program: %w", err)
	}
	return prg, nil
}

// Create validates, compiles and stores a rule.
func (s *Service) Create(ctx context.Context, rule *Rule) error {
	if err := rule.Validate(ctx); err != nil {
		return err
	}
	if err := s.CheckExpression(rule.Expression); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return err
	}
	logger.Info(ctx, "alert rule created", "id", rule.ID, "name", rule.Name)
	return nil
}

// Update validates, compiles and stores rule changes.
func (s *Service) Update(ctx context.Context, rule *Rule) error {
	if err := rule.Validate(ctx); err != nil {
		return err
	}
	if err := s.CheckExpression(rule.Expression); err != nil {
		return err
	}
	rule.Touch()
	return s.repo.Update(ctx, rule)
}

// GetByID retrieves a rule.
func (s *Service) GetByID(ctx context.Context, ruleID id.ID) (*Rule, error) {
	return s.repo.GetByID(ctx, ruleID)
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, ruleID id.ID) error {
	return s.repo.Delete(ctx, ruleID)
}

// List retrieves rules with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Rule], error) {
	return s.repo.List(ctx, filter)
}

// EvaluateLines runs every active rule over every line and returns the
// matches. A rule that fails to compile or evaluate is logged and skipped:
// a broken rule must not block a period close.
func (s *Service) EvaluateLines(ctx context.Context, lines []LineFacts) ([]Triggered, error) {
	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	if len(rules) == 0 || len(lines) == 0 {
		return nil, nil
	}

	var triggered []Triggered
	for _, rule := range rules {
		prg, err := s.compile(rule.Expression)
		if err != nil {
			logger.Warn(ctx, "skipping broken alert rule",
				"rule_id", rule.ID, "name", rule.Name, "error", err)
			continue
		}

		for i := range lines {
			l := &lines[i]
			out, _, err := prg.Eval(map[string]any{
				"item":           l.ItemName,
				"category":       l.Category,
				"variance_qty":   l.VarianceQty,
				"variance_pct":   l.VariancePct,
				"variance_value": l.VarianceValue,
				"counted_value":  l.CountedValue,
			})
			if err != nil {
				logger.Warn(ctx, "alert rule evaluation failed",
					"rule_id", rule.ID, "item", l.ItemName, "error", err)
				continue
			}
			match, ok := out.Value().(bool)
			if !ok || !match {
				continue
			}
			triggered = append(triggered, Triggered{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Severity: rule.Severity,
				ItemID:   l.ItemID,
				ItemName: l.ItemName,
			})
		}
	}
	return triggered, nil
}
