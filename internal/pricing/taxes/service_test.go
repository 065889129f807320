package taxes

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type mockRepository struct {
	codes  map[int64]TaxCode
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{codes: make(map[int64]TaxCode), nextID: 1}
}

func (m *mockRepository) Get(ctx context.Context, id int64) (TaxCode, error) {
	tc, ok := m.codes[id]
	if !ok {
		return TaxCode{}, shared.ErrNotFound
	}
	return tc, nil
}

func (m *mockRepository) ListActive(ctx context.Context) ([]TaxCode, error) {
	var out []TaxCode
	for _, tc := range m.codes {
		if tc.IsActive {
			out = append(out, tc)
		}
	}
	return out, nil
}

func (m *mockRepository) Insert(ctx context.Context, code TaxCode) (TaxCode, error) {
	code.ID = m.nextID
	m.nextID++
	code.IsActive = true
	m.codes[code.ID] = code
	return code, nil
}

func (m *mockRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tc, ok := m.codes[id]
	if !ok {
		return shared.ErrNotFound
	}
	tc.IsActive = active
	m.codes[id] = tc
	return nil
}

type mockChargeRepo struct {
	charges map[int64]charges.Charge
}

func (m *mockChargeRepo) Get(ctx context.Context, id int64) (charges.Charge, error) {
	c, ok := m.charges[id]
	if !ok {
		return charges.Charge{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockChargeRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]charges.Charge, error) {
	out := make(map[int64]charges.Charge)
	for _, id := range ids {
		if c, ok := m.charges[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *mockChargeRepo) ListActive(ctx context.Context) ([]charges.Charge, error) {
	var out []charges.Charge
	for _, c := range m.charges {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

type fixture struct {
	svc     *Service
	repo    *mockRepository
	charges *mockChargeRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMockRepository()
	chargeRepo := &mockChargeRepo{charges: make(map[int64]charges.Charge)}
	cache := NewCache(client, time.Minute)
	return &fixture{
		svc:     NewService(slog.Default(), repo, chargeRepo, cache),
		repo:    repo,
		charges: chargeRepo,
	}
}

func (f *fixture) addCharge(id int64, taxCodeID *int64) {
	f.charges.charges[id] = charges.Charge{ID: id, Code: "CHG", Name: "charge", UOM: "KG", TaxCodeID: taxCodeID, IsActive: true}
}

func (f *fixture) addTaxCode(rate float64, active bool) int64 {
	tc, _ := f.repo.Insert(context.Background(), TaxCode{Code: "GST", Name: "GST", Rate: rate})
	if !active {
		_ = f.repo.SetActive(context.Background(), tc.ID, false)
	}
	return tc.ID
}

func TestTaxForAppliesConfiguredRate(t *testing.T) {
	f := newFixture(t)
	codeID := f.addTaxCode(0.18, true)
	f.addCharge(1, &codeID)

	res, err := f.svc.TaxFor(context.Background(), 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.18, res.Rate)
	assert.Equal(t, 180.0, res.Amount)
	assert.Equal(t, 1180.0, res.Total)
}

func TestTaxForZeroRateLeavesTotalUnchanged(t *testing.T) {
	f := newFixture(t)
	codeID := f.addTaxCode(0, true)
	f.addCharge(1, &codeID)

	res, err := f.svc.TaxFor(context.Background(), 1234.56, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Amount)
	assert.Equal(t, 1234.56, res.Total)
}

func TestTaxForChargeWithoutTaxCode(t *testing.T) {
	f := newFixture(t)
	f.addCharge(1, nil)

	_, err := f.svc.TaxFor(context.Background(), 1000, 1)
	assert.ErrorIs(t, err, ErrMissingTaxConfiguration)
}

func TestTaxForInactiveTaxCode(t *testing.T) {
	f := newFixture(t)
	codeID := f.addTaxCode(0.18, false)
	f.addCharge(1, &codeID)

	_, err := f.svc.TaxFor(context.Background(), 1000, 1)
	assert.ErrorIs(t, err, ErrInactiveTaxCode)
}

func TestTaxForServesCachedLookupUntilBump(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codeID := f.addTaxCode(0.18, true)
	f.addCharge(1, &codeID)

	res, err := f.svc.TaxFor(ctx, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, 180.0, res.Amount)

	// Mutating the store behind the cache's back is not visible until the
	// version is bumped.
	tc := f.repo.codes[codeID]
	tc.Rate = 0.28
	f.repo.codes[codeID] = tc

	res, err = f.svc.TaxFor(ctx, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, 180.0, res.Amount)

	require.NoError(t, f.svc.FlushCache(ctx))

	res, err = f.svc.TaxFor(ctx, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, 280.0, res.Amount)
}

func TestTaxForBatchAggregatesTotals(t *testing.T) {
	f := newFixture(t)
	gst := f.addTaxCode(0.18, true)
	zero := f.addTaxCode(0, true)
	f.addCharge(1, &gst)
	f.addCharge(2, &zero)

	out, err := f.svc.TaxForBatch(context.Background(), []BatchItem{
		{SalePrice: 1000, ChargeID: 1},
		{SalePrice: 500, ChargeID: 2},
	})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, 1500.0, out.SaleTotal)
	assert.Equal(t, 180.0, out.TaxTotal)
	assert.Equal(t, 1680.0, out.GrandTotal)
}

func TestTaxForBatchFailsOnFirstBadItem(t *testing.T) {
	f := newFixture(t)
	gst := f.addTaxCode(0.18, true)
	f.addCharge(1, &gst)
	f.addCharge(2, nil)

	_, err := f.svc.TaxForBatch(context.Background(), []BatchItem{
		{SalePrice: 1000, ChargeID: 1},
		{SalePrice: 500, ChargeID: 2},
	})
	assert.ErrorIs(t, err, ErrMissingTaxConfiguration)
}
