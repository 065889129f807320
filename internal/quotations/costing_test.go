package quotations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypoint-tms/waypoint-tms/internal/rating/chargerules"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/vendorrates"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

func taxID(v int64) *int64 { return &v }

func costingDeps() Deps {
	return Deps{
		ChargeRules: stubCharges{charges: []chargerules.ApplicableCharge{
			{ChargeID: 1, Code: "FRT", Name: "Freight", UOM: "KG", TaxCodeID: taxID(1)},
			{ChargeID: 2, Code: "DOC", Name: "Documentation", UOM: "SHP", TaxCodeID: taxID(1)},
		}},
		VendorRates: stubVendors{costs: []vendorrates.VendorCost{
			{VendorID: 7, ChargeID: 1, Rate: 120, Currency: "INR", Cost: 18_000},
			{VendorID: 8, ChargeID: 1, Rate: 2, Currency: "USD", Cost: 300},
		}},
		FX:      stubFX{rates: map[string]float64{"USD": 83.28}},
		Margins: stubMargins{pct: 0.10, flat: 50},
		Taxes:   stubTaxes{rate: 0.18},
	}
}

func TestRunCostingCreatesRankedLines(t *testing.T) {
	f := newFixture(t, costingDeps())
	q := f.seedQuotation(StatusDraft)

	lines, err := f.svc.RunCosting(context.Background(), q.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	freight := lines[0]
	require.Len(t, freight.Options, 2)
	// 18,000 INR beats 300 USD at 83.28 (24,984 base).
	assert.Equal(t, 1, freight.Options[0].Rank)
	assert.Equal(t, int64(7), freight.Options[0].VendorID)
	assert.Equal(t, 18_000.0, freight.Options[0].CostBase)
	assert.Equal(t, 2, freight.Options[1].Rank)
	assert.Equal(t, 300*83.28, freight.Options[1].CostBase)

	require.NotNil(t, freight.SelectedVendorID)
	assert.Equal(t, int64(7), *freight.SelectedVendorID)
	assert.Equal(t, 18_000.0, freight.TotalCostBase)
	assert.False(t, freight.IsManual)

	// No vendor covers documentation: zero-cost manual placeholder.
	doc := lines[1]
	assert.True(t, doc.IsManual)
	assert.Nil(t, doc.SelectedVendorID)
	assert.Equal(t, 0.0, doc.TotalCostBase)

	stored, err := f.repo.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingCosting, stored.Status)
	assert.Equal(t, 18_000.0, stored.TotalCostBase)
}

func TestRunCostingSecondRunIsNoOp(t *testing.T) {
	f := newFixture(t, costingDeps())
	q := f.seedQuotation(StatusDraft)
	ctx := context.Background()

	first, err := f.svc.RunCosting(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := f.svc.RunCosting(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, second)

	all, err := f.repo.ListCostLines(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRunCostingNoApplicableChargesIsHardStop(t *testing.T) {
	deps := costingDeps()
	deps.ChargeRules = stubCharges{err: shared.ErrNoApplicableCharges}
	f := newFixture(t, deps)
	q := f.seedQuotation(StatusDraft)

	_, err := f.svc.RunCosting(context.Background(), q.ID)
	assert.ErrorIs(t, err, shared.ErrNoApplicableCharges)

	lines, _ := f.repo.ListCostLines(context.Background(), q.ID)
	assert.Empty(t, lines)
}

func TestRunCostingMissingRateFailsRun(t *testing.T) {
	deps := costingDeps()
	deps.FX = stubFX{rates: map[string]float64{}}
	f := newFixture(t, deps)
	q := f.seedQuotation(StatusDraft)

	_, err := f.svc.RunCosting(context.Background(), q.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRunCostingRejectedAfterSend(t *testing.T) {
	f := newFixture(t, costingDeps())
	q := f.seedQuotation(StatusSent)

	_, err := f.svc.RunCosting(context.Background(), q.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestSelectVendorSwitchesToRankedOption(t *testing.T) {
	f := newFixture(t, costingDeps())
	q := f.seedQuotation(StatusDraft)
	ctx := context.Background()

	lines, err := f.svc.RunCosting(ctx, q.ID)
	require.NoError(t, err)
	freight := lines[0]

	vendor := int64(8)
	updated, err := f.svc.SelectVendor(ctx, q.ID, freight.ID, &vendor, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), *updated.SelectedVendorID)
	assert.Equal(t, "USD", updated.Currency)
	assert.Equal(t, 83.28, updated.ExchangeRate)
	assert.Equal(t, 300*83.28, updated.TotalCostBase)

	stored, err := f.repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 300*83.28, stored.TotalCostBase)
}

func TestSelectVendorRejectsUnrankedVendor(t *testing.T) {
	f := newFixture(t, costingDeps())
	q := f.seedQuotation(StatusDraft)
	ctx := context.Background()

	lines, err := f.svc.RunCosting(ctx, q.ID)
	require.NoError(t, err)

	vendor := int64(999)
	_, err = f.svc.SelectVendor(ctx, q.ID, lines[0].ID, &vendor, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSelectVendorManualRateOnPlaceholder(t *testing.T) {
	f := newFixture(t, costingDeps())
	q := f.seedQuotation(StatusDraft)
	ctx := context.Background()

	lines, err := f.svc.RunCosting(ctx, q.ID)
	require.NoError(t, err)
	doc := lines[1]
	require.True(t, doc.IsManual)

	rate := 2500.0
	updated, err := f.svc.SelectVendor(ctx, q.ID, doc.ID, nil, &rate)
	require.NoError(t, err)
	assert.True(t, updated.IsManual)
	assert.Equal(t, "INR", updated.Currency)
	assert.Equal(t, 2500.0, updated.TotalCostBase)

	stored, err := f.repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 18_000.0+2500.0, stored.TotalCostBase)
}

func TestSelectVendorOverrideReusesLineExchangeRate(t *testing.T) {
	f := newFixture(t, costingDeps())
	q := f.seedQuotation(StatusDraft)
	ctx := context.Background()

	lines, err := f.svc.RunCosting(ctx, q.ID)
	require.NoError(t, err)
	freight := lines[0]

	vendor := int64(8)
	_, err = f.svc.SelectVendor(ctx, q.ID, freight.ID, &vendor, nil)
	require.NoError(t, err)

	rate := 280.0
	updated, err := f.svc.SelectVendor(ctx, q.ID, freight.ID, nil, &rate)
	require.NoError(t, err)
	assert.True(t, updated.IsManual)
	assert.Equal(t, 280*83.28, updated.TotalCostBase)
}
