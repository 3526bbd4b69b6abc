package alerts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain"
)

type fakeRepo struct {
	rules []*Rule
}

func (f *fakeRepo) Create(ctx context.Context, rule *Rule) error {
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, ruleID id.ID) (*Rule, error) {
	for _, r := range f.rules {
		if r.ID == ruleID {
			return r, nil
		}
	}
	return nil, apperror.NewNotFound("alert rule", ruleID.String())
}

func (f *fakeRepo) Update(ctx context.Context, rule *Rule) error { return nil }
func (f *fakeRepo) Delete(ctx context.Context, ruleID id.ID) error {
	return nil
}

func (f *fakeRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Rule], error) {
	return domain.ListResult[*Rule]{Items: f.rules, TotalCount: int64(len(f.rules))}, nil
}

func (f *fakeRepo) ListActive(ctx context.Context) ([]*Rule, error) {
	var active []*Rule
	for _, r := range f.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func TestCheckExpression(t *testing.T) {
	svc, err := NewService(&fakeRepo{})
	require.NoError(t, err)

	tests := []struct {
		name       string
		expression string
		wantOK     bool
	}{
		{"threshold on percent", `variance_pct < -5.0`, true},
		{"category filter", `category == "spirits" && variance_value < -20.0`, true},
		{"item name match", `item.startsWith("House") && variance_qty != 0.0`, true},
		{"not boolean", `variance_pct * 2.0`, false},
		{"unknown variable", `shrinkage > 1.0`, false},
		{"syntax error", `variance_pct <`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckExpression(tt.expression)
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)
			}
		})
	}
}

func TestCreateRejectsBrokenRules(t *testing.T) {
	repo := &fakeRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	err = svc.Create(ctx, NewRule("bad", `variance_pct +`, SeverityWarning))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Empty(t, repo.rules)

	err = svc.Create(ctx, NewRule("", `true`, SeverityWarning))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	err = svc.Create(ctx, NewRule("ok", `variance_pct < -5.0`, SeverityWarning))
	assert.NoError(t, err)
	assert.Len(t, repo.rules, 1)
}

func TestEvaluateLines(t *testing.T) {
	repo := &fakeRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, NewRule(
		"spirits shortage over 5%",
		`category == "spirits" && variance_pct < -5.0`,
		SeverityCritical,
	)))
	require.NoError(t, svc.Create(ctx, NewRule(
		"any large value variance",
		`variance_value < -50.0 || variance_value > 50.0`,
		SeverityWarning,
	)))

	disabled := NewRule("disabled", `true`, SeverityInfo)
	disabled.IsActive = false
	repo.rules = append(repo.rules, disabled)

	facts := []LineFacts{
		{ItemID: id.New(), ItemName: "House Vodka", Category: "spirits",
			VarianceQty: -12, VariancePct: -8.9, VarianceValue: -11.1, CountedValue: 120},
		{ItemID: id.New(), ItemName: "Merlot", Category: "wine",
			VarianceQty: -1, VariancePct: -9.0, VarianceValue: -8.5, CountedValue: 85},
		{ItemID: id.New(), ItemName: "Lager Keg", Category: "draft",
			VarianceQty: -30, VariancePct: -3.0, VarianceValue: -55.2, CountedValue: 400},
	}

	got, err := svc.EvaluateLines(ctx, facts)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "spirits shortage over 5%", got[0].RuleName)
	assert.Equal(t, "House Vodka", got[0].ItemName)
	assert.Equal(t, SeverityCritical, got[0].Severity)
	assert.Equal(t, "any large value variance", got[1].RuleName)
	assert.Equal(t, "Lager Keg", got[1].ItemName)
}

func TestEvaluateLinesSkipsBrokenRule(t *testing.T) {
	repo := &fakeRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	// Bypass Create validation to simulate a rule that rotted in storage
	repo.rules = append(repo.rules, NewRule("rotten", `no_such_var > 0.0`, SeverityInfo))
	require.NoError(t, svc.Create(ctx, NewRule("fine", `variance_qty < 0.0`, SeverityInfo)))

	got, err := svc.EvaluateLines(ctx, []LineFacts{
		{ItemID: id.New(), ItemName: "House Vodka", Category: "spirits", VarianceQty: -1},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fine", got[0].RuleName)
}

func TestEvaluateLinesEmpty(t *testing.T) {
	repo := &fakeRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	got, err := svc.EvaluateLines(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
