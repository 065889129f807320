package chargerules

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/rating"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type mockRepository struct {
	rules   []ChargeRule
	charges map[int64]charges.Charge
	nextID  int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{charges: make(map[int64]charges.Charge), nextID: 1}
}

func (m *mockRepository) FindApplicable(ctx context.Context, profile rating.Profile) ([]ApplicableCharge, error) {
	var out []ApplicableCharge
	for _, rule := range m.rules {
		if !rule.IsActive || rule.Mode != profile.Mode || rule.Movement != profile.Movement {
			continue
		}
		if rule.Terms != profile.Terms && rule.Terms != rating.AllTerms {
			continue
		}
		c, ok := m.charges[rule.ChargeID]
		if !ok || !c.IsActive {
			continue
		}
		out = append(out, ApplicableCharge{
			ChargeID:  c.ID,
			Code:      c.Code,
			Name:      c.Name,
			UOM:       c.UOM,
			TaxCodeID: c.TaxCodeID,
		})
	}
	return out, nil
}

func (m *mockRepository) GetRule(ctx context.Context, profile rating.Profile, chargeID int64) (*ChargeRule, error) {
	for i := range m.rules {
		r := &m.rules[i]
		if r.Mode == profile.Mode && r.Movement == profile.Movement && r.Terms == profile.Terms && r.ChargeID == chargeID {
			out := *r
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) Insert(ctx context.Context, rule ChargeRule) (ChargeRule, error) {
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

// Get satisfies charges.Repository using the mock's charge map.
func (m *mockRepository) Get(ctx context.Context, id int64) (charges.Charge, error) {
	c, ok := m.charges[id]
	if !ok {
		return charges.Charge{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]charges.Charge, error) {
	out := make(map[int64]charges.Charge)
	for _, id := range ids {
		if c, ok := m.charges[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *mockRepository) ListActive(ctx context.Context) ([]charges.Charge, error) {
	var out []charges.Charge
	for _, c := range m.charges {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepository) addCharge(id int64, code string, active bool) {
	m.charges[id] = charges.Charge{ID: id, Code: code, Name: code, UOM: "KG", IsActive: active}
}

func airExportFOB() rating.Profile {
	return rating.Profile{Mode: rating.ModeAir, Movement: rating.MovementExport, Terms: "FOB"}
}

func newTestService(repo *mockRepository) *Service {
	return NewService(slog.Default(), repo, repo)
}

func TestApplicableChargesMergesExactAndWildcard(t *testing.T) {
	repo := newMockRepository()
	repo.addCharge(1, "FRT", true)
	repo.addCharge(2, "DOC", true)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.AddRule(ctx, airExportFOB(), 1, nil)
	require.NoError(t, err)
	_, err = svc.AddRule(ctx, rating.Profile{Mode: rating.ModeAir, Movement: rating.MovementExport, Terms: rating.AllTerms}, 2, nil)
	require.NoError(t, err)

	out, err := svc.ApplicableCharges(ctx, airExportFOB())
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestApplicableChargesDeduplicatesAcrossMatchPaths(t *testing.T) {
	repo := newMockRepository()
	repo.addCharge(1, "FRT", true)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.AddRule(ctx, airExportFOB(), 1, nil)
	require.NoError(t, err)
	_, err = svc.AddRule(ctx, rating.Profile{Mode: rating.ModeAir, Movement: rating.MovementExport, Terms: rating.AllTerms}, 1, nil)
	require.NoError(t, err)

	out, err := svc.ApplicableCharges(ctx, airExportFOB())
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestApplicableChargesEmptyIsHardStop(t *testing.T) {
	svc := newTestService(newMockRepository())
	_, err := svc.ApplicableCharges(context.Background(), airExportFOB())
	assert.ErrorIs(t, err, shared.ErrNoApplicableCharges)
}

func TestApplicableChargesSkipsInactiveCharges(t *testing.T) {
	repo := newMockRepository()
	repo.addCharge(1, "FRT", true)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.AddRule(ctx, airExportFOB(), 1, nil)
	require.NoError(t, err)
	repo.addCharge(1, "FRT", false)

	_, err = svc.ApplicableCharges(ctx, airExportFOB())
	assert.ErrorIs(t, err, shared.ErrNoApplicableCharges)
}

func TestAddRuleIsIdempotent(t *testing.T) {
	repo := newMockRepository()
	repo.addCharge(1, "FRT", true)
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.AddRule(ctx, airExportFOB(), 1, nil)
	require.NoError(t, err)
	second, err := svc.AddRule(ctx, airExportFOB(), 1, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.rules, 1)
}

func TestAddRuleReactivatesDeactivatedTuple(t *testing.T) {
	repo := newMockRepository()
	repo.addCharge(1, "FRT", true)
	svc := newTestService(repo)
	ctx := context.Background()

	rule, err := svc.AddRule(ctx, airExportFOB(), 1, nil)
	require.NoError(t, err)

	removed, err := svc.RemoveRule(ctx, airExportFOB(), 1)
	require.NoError(t, err)
	assert.True(t, removed)

	again, err := svc.AddRule(ctx, airExportFOB(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, again.ID)
	assert.True(t, again.IsActive)
	assert.Len(t, repo.rules, 1)
}

func TestAddRuleRejectsInactiveCharge(t *testing.T) {
	repo := newMockRepository()
	repo.addCharge(1, "FRT", false)
	svc := newTestService(repo)

	_, err := svc.AddRule(context.Background(), airExportFOB(), 1, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRemoveRuleMissingTupleReportsFalse(t *testing.T) {
	svc := newTestService(newMockRepository())
	removed, err := svc.RemoveRule(context.Background(), airExportFOB(), 99)
	require.NoError(t, err)
	assert.False(t, removed)
}
