package margins

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/customers"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type mockRepository struct {
	rules     []MarginRule
	charges   map[int64]charges.Charge
	customers map[int64]customers.Customer
	nextID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		charges:   make(map[int64]charges.Charge),
		customers: make(map[int64]customers.Customer),
		nextID:    1,
	}
}

func (m *mockRepository) ListActive(ctx context.Context) ([]MarginRule, error) {
	var out []MarginRule
	for _, r := range m.rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*MarginRule, error) {
	for i := range m.rules {
		if m.rules[i].ID == id {
			out := m.rules[i]
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) Insert(ctx context.Context, rule MarginRule) (MarginRule, error) {
	rule.ID = m.nextID
	m.nextID++
	rule.IsActive = true
	m.rules = append(m.rules, rule)
	return rule, nil
}

func (m *mockRepository) SetActive(ctx context.Context, id int64, active bool) error {
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules[i].IsActive = active
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) GetCharge(ctx context.Context, id int64) (charges.Charge, error) {
	c, ok := m.charges[id]
	if !ok {
		return charges.Charge{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockRepository) GetCustomer(ctx context.Context, id int64) (customers.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return customers.Customer{}, shared.ErrNotFound
	}
	return c, nil
}

type chargeLookup struct{ *mockRepository }

func (l chargeLookup) Get(ctx context.Context, id int64) (charges.Charge, error) {
	return l.GetCharge(ctx, id)
}

func (l chargeLookup) GetByIDs(ctx context.Context, ids []int64) (map[int64]charges.Charge, error) {
	out := make(map[int64]charges.Charge)
	for _, id := range ids {
		if c, ok := l.charges[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (l chargeLookup) ListActive(ctx context.Context) ([]charges.Charge, error) {
	var out []charges.Charge
	for _, c := range l.charges {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

type customerLookup struct{ *mockRepository }

func (l customerLookup) Get(ctx context.Context, id int64) (customers.Customer, error) {
	return l.GetCustomer(ctx, id)
}

func newTestService(repo *mockRepository) *Service {
	return NewService(slog.Default(), repo, chargeLookup{repo}, customerLookup{repo})
}

func id(v int64) *int64 { return &v }

func TestSalePriceChargeRuleOverGlobal(t *testing.T) {
	repo := newMockRepository()
	repo.rules = []MarginRule{
		{ID: 1, Precedence: 0, MarginPct: 0, MarginFlat: 0, IsActive: true},
		{ID: 2, Precedence: 0, ChargeID: id(5), MarginPct: 0.10, MarginFlat: 50, IsActive: true},
	}
	svc := newTestService(repo)

	res, err := svc.SalePrice(context.Background(), 1000, id(5), id(999))
	require.NoError(t, err)
	assert.Equal(t, 1150.0, res.SalePrice)
	assert.Equal(t, SpecificityChargeOnly, res.Specificity)
	require.NotNil(t, res.RuleID)
	assert.Equal(t, int64(2), *res.RuleID)
}

func TestSalePriceExactPairBeatsChargeOnlyRegardlessOfPrecedence(t *testing.T) {
	repo := newMockRepository()
	repo.rules = []MarginRule{
		{ID: 1, Precedence: 100, ChargeID: id(5), MarginPct: 0.10, MarginFlat: 50, IsActive: true},
		{ID: 2, Precedence: 0, ChargeID: id(5), CustomerID: id(9), MarginPct: 0.25, IsActive: true},
	}
	svc := newTestService(repo)

	res, err := svc.SalePrice(context.Background(), 1000, id(5), id(9))
	require.NoError(t, err)
	assert.Equal(t, 1250.0, res.SalePrice)
	assert.Equal(t, SpecificityExact, res.Specificity)
}

func TestSalePricePrecedenceBreaksTiesWithinLevel(t *testing.T) {
	repo := newMockRepository()
	repo.rules = []MarginRule{
		{ID: 1, Precedence: 1, ChargeID: id(5), MarginPct: 0.10, IsActive: true},
		{ID: 2, Precedence: 2, ChargeID: id(5), MarginPct: 0.20, IsActive: true},
	}
	svc := newTestService(repo)

	res, err := svc.SalePrice(context.Background(), 1000, id(5), nil)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, res.SalePrice)
	require.NotNil(t, res.RuleID)
	assert.Equal(t, int64(2), *res.RuleID)
}

func TestSalePriceCustomerOnlyLevel(t *testing.T) {
	repo := newMockRepository()
	repo.rules = []MarginRule{
		{ID: 1, Precedence: 0, MarginPct: 0.05, IsActive: true},
		{ID: 2, Precedence: 0, CustomerID: id(9), MarginPct: 0.15, IsActive: true},
	}
	svc := newTestService(repo)

	res, err := svc.SalePrice(context.Background(), 1000, id(77), id(9))
	require.NoError(t, err)
	assert.Equal(t, 1150.0, res.SalePrice)
	assert.Equal(t, SpecificityCustomerOnly, res.Specificity)
}

func TestSalePriceNoRuleFallsBackToZeroMargin(t *testing.T) {
	svc := newTestService(newMockRepository())

	res, err := svc.SalePrice(context.Background(), 1000, id(5), id(9))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, res.SalePrice)
	assert.Equal(t, 0.0, res.MarginPct)
	assert.Nil(t, res.RuleID)
	assert.Equal(t, SpecificityNone, res.Specificity)
}

func TestSalePriceIgnoresInactiveRules(t *testing.T) {
	repo := newMockRepository()
	repo.rules = []MarginRule{
		{ID: 1, Precedence: 0, ChargeID: id(5), MarginPct: 0.50, IsActive: false},
	}
	svc := newTestService(repo)

	res, err := svc.SalePrice(context.Background(), 1000, id(5), nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, res.SalePrice)
}

func TestAddRuleRejectsInactiveCharge(t *testing.T) {
	repo := newMockRepository()
	repo.charges[5] = charges.Charge{ID: 5, Code: "FRT", IsActive: false}
	svc := newTestService(repo)

	_, err := svc.AddRule(context.Background(), MarginRule{ChargeID: id(5), MarginPct: 0.1})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestValidateRulesFlagsMissingGlobalDefault(t *testing.T) {
	repo := newMockRepository()
	repo.charges[5] = charges.Charge{ID: 5, Code: "FRT", IsActive: true}
	repo.rules = []MarginRule{
		{ID: 1, ChargeID: id(5), MarginPct: 0.1, IsActive: true},
	}
	svc := newTestService(repo)

	issues, err := svc.ValidateRules(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "warning", issues[0].Severity)
}

func TestValidateRulesFlagsInactiveReferences(t *testing.T) {
	repo := newMockRepository()
	repo.charges[5] = charges.Charge{ID: 5, Code: "FRT", IsActive: false}
	repo.customers[9] = customers.Customer{ID: 9, Code: "ACME", IsActive: true}
	repo.rules = []MarginRule{
		{ID: 1, MarginPct: 0, IsActive: true},
		{ID: 2, ChargeID: id(5), CustomerID: id(9), MarginPct: 0.1, IsActive: true},
		{ID: 3, CustomerID: id(404), MarginPct: 0.1, IsActive: true},
	}
	svc := newTestService(repo)

	issues, err := svc.ValidateRules(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, "error", issue.Severity)
	}
}
