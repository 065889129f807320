package quotations

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/customers"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/margins"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/taxes"
	"github.com/waypoint-tms/waypoint-tms/internal/rating"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/chargerules"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/dimensions"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/vendorrates"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type mockRepository struct {
	quotations map[int64]*Quotation
	costLines  map[int64]*CostLine
	saleLines  map[int64]*SaleLine
	nextID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotations: make(map[int64]*Quotation),
		costLines:  make(map[int64]*CostLine),
		saleLines:  make(map[int64]*SaleLine),
		nextID:     1,
	}
}

func (m *mockRepository) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *q
	return &out, nil
}

func (m *mockRepository) Insert(ctx context.Context, q Quotation) (int64, error) {
	q.ID = m.id()
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	q, ok := m.quotations[id]
	if !ok {
		return shared.ErrNotFound
	}
	q.Status = status
	return nil
}

func (m *mockRepository) UpdateTotals(ctx context.Context, id int64, costBase, saleBase, taxBase, grandTotal float64) error {
	q, ok := m.quotations[id]
	if !ok {
		return shared.ErrNotFound
	}
	q.TotalCostBase, q.TotalSaleBase, q.TotalTaxBase, q.GrandTotal = costBase, saleBase, taxBase, grandTotal
	return nil
}

func (m *mockRepository) ListCostLines(ctx context.Context, quotationID int64) ([]CostLine, error) {
	var out []CostLine
	for _, line := range m.costLines {
		if line.QuotationID == quotationID {
			out = append(out, *line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChargeID < out[j].ChargeID })
	return out, nil
}

func (m *mockRepository) GetCostLine(ctx context.Context, id int64) (*CostLine, error) {
	line, ok := m.costLines[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *line
	return &out, nil
}

func (m *mockRepository) InsertCostLine(ctx context.Context, line CostLine) (int64, error) {
	for _, existing := range m.costLines {
		if existing.QuotationID == line.QuotationID && existing.ChargeID == line.ChargeID {
			return 0, shared.ErrDuplicate
		}
	}
	line.ID = m.id()
	m.costLines[line.ID] = &line
	return line.ID, nil
}

func (m *mockRepository) UpdateCostLineSelection(ctx context.Context, line CostLine) error {
	existing, ok := m.costLines[line.ID]
	if !ok {
		return shared.ErrNotFound
	}
	*existing = line
	return nil
}

func (m *mockRepository) ListSaleLines(ctx context.Context, quotationID int64) ([]SaleLine, error) {
	var out []SaleLine
	for _, line := range m.saleLines {
		if line.QuotationID == quotationID {
			out = append(out, *line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChargeID < out[j].ChargeID })
	return out, nil
}

func (m *mockRepository) GetSaleLine(ctx context.Context, id int64) (*SaleLine, error) {
	line, ok := m.saleLines[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *line
	return &out, nil
}

func (m *mockRepository) InsertSaleLine(ctx context.Context, line SaleLine) (int64, error) {
	for _, existing := range m.saleLines {
		if existing.QuotationID == line.QuotationID && existing.ChargeID == line.ChargeID {
			return 0, shared.ErrDuplicate
		}
	}
	line.ID = m.id()
	m.saleLines[line.ID] = &line
	return line.ID, nil
}

func (m *mockRepository) UpdateSaleLine(ctx context.Context, line SaleLine) error {
	existing, ok := m.saleLines[line.ID]
	if !ok {
		return shared.ErrNotFound
	}
	*existing = line
	return nil
}

type stubCustomers struct{}

func (stubCustomers) Get(ctx context.Context, id int64) (customers.Customer, error) {
	return customers.Customer{ID: id, Code: "CUST", Name: "customer", IsActive: true}, nil
}

type stubCharges struct {
	charges []chargerules.ApplicableCharge
	err     error
}

func (s stubCharges) ApplicableCharges(ctx context.Context, profile rating.Profile) ([]chargerules.ApplicableCharge, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.charges, nil
}

type stubVendors struct {
	costs []vendorrates.VendorCost
}

func (s stubVendors) MatchingCosts(ctx context.Context, query vendorrates.CostQuery) ([]vendorrates.VendorCost, error) {
	return s.costs, nil
}

type stubFX struct {
	rates map[string]float64
}

func (s stubFX) Rate(ctx context.Context, from, to string, asOf time.Time) (float64, error) {
	if from == to {
		return 1.0, nil
	}
	rate, ok := s.rates[from]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return rate, nil
}

type stubMargins struct {
	pct  float64
	flat float64
}

func (s stubMargins) SalePrice(ctx context.Context, cost float64, chargeID, customerID *int64) (margins.Resolution, error) {
	ruleID := int64(1)
	return margins.Resolution{
		SalePrice:   cost*(1+s.pct) + s.flat,
		MarginPct:   s.pct,
		RuleID:      &ruleID,
		Specificity: margins.SpecificityGlobal,
	}, nil
}

type stubTaxes struct {
	rate float64
}

func (s stubTaxes) TaxFor(ctx context.Context, salePrice float64, chargeID int64) (taxes.TaxResult, error) {
	amount := salePrice * s.rate
	return taxes.TaxResult{TaxCodeID: 1, TaxCode: "GST", Rate: s.rate, Amount: amount, Total: salePrice + amount}, nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) StatusChanged(ctx context.Context, quotationID int64, from, to Status) error {
	n.events = append(n.events, string(from)+">"+string(to))
	return nil
}

type fixture struct {
	svc      *Service
	repo     *mockRepository
	notifier *recordingNotifier
}

func newFixture(t *testing.T, deps Deps) *fixture {
	t.Helper()
	repo := newMockRepository()
	notifier := &recordingNotifier{}

	deps.Repo = repo
	deps.CustomerRepo = stubCustomers{}
	deps.Notifier = notifier
	if deps.Locks == nil {
		deps.Locks = shared.NewQuotationLocks()
	}
	if deps.BaseCurrency == "" {
		deps.BaseCurrency = "INR"
	}
	if deps.ApprovalThreshold == 0 {
		deps.ApprovalThreshold = 500_000
	}
	return &fixture{
		svc:      NewService(slog.Default(), deps),
		repo:     repo,
		notifier: notifier,
	}
}

func (f *fixture) seedQuotation(status Status) *Quotation {
	q := &Quotation{
		Reference:     "QTN-TEST",
		CustomerID:    9,
		OriginID:      10,
		DestinationID: 20,
		Mode:          rating.ModeAir,
		Movement:      rating.MovementExport,
		Terms:         "FOB",
		Status:        status,
		QuoteDate:     time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		ChargeableKG:  150,
	}
	q.ID = f.repo.id()
	f.repo.quotations[q.ID] = q
	return q
}

func TestCreateComputesDimensionalTotals(t *testing.T) {
	f := newFixture(t, Deps{})

	q, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:    9,
		OriginID:      10,
		DestinationID: 20,
		Mode:          rating.ModeAir,
		Movement:      rating.MovementExport,
		Terms:         "FOB",
		Pieces: []dimensions.Piece{
			{LengthCM: 100, WidthCM: 100, HeightCM: 100, Count: 1, WeightPerPiece: 10},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, q.Status)
	assert.Equal(t, 1.0, q.VolumeCBM)
	assert.Equal(t, 10.0, q.ActualWeightKG)
	assert.Equal(t, 167.0, q.ChargeableKG)
	assert.NotEmpty(t, q.Reference)
}

func TestCreateRejectsInvalidDimensions(t *testing.T) {
	f := newFixture(t, Deps{})

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:    9,
		OriginID:      10,
		DestinationID: 20,
		Mode:          rating.ModeAir,
		Movement:      rating.MovementExport,
		Terms:         "FOB",
		Pieces: []dimensions.Piece{
			{LengthCM: 0, WidthCM: 100, HeightCM: 100, Count: 1, WeightPerPiece: 10},
		},
	})
	assert.ErrorIs(t, err, dimensions.ErrInvalidDimension)
}

func TestApproveOnlyFromPendingApproval(t *testing.T) {
	f := newFixture(t, Deps{})
	q := f.seedQuotation(StatusPendingApproval)

	out, err := f.svc.Approve(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{"PENDING_APPROVAL>SENT"}, f.notifier.events)

	_, err = f.svc.Approve(context.Background(), q.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestRejectReturnsToDraft(t *testing.T) {
	f := newFixture(t, Deps{})
	q := f.seedQuotation(StatusPendingApproval)

	out, err := f.svc.Reject(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, out.Status)
}

func TestWonLostOnlyFromSent(t *testing.T) {
	f := newFixture(t, Deps{})
	q := f.seedQuotation(StatusSent)

	out, err := f.svc.MarkWon(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, out.Status)

	_, err = f.svc.MarkLost(context.Background(), q.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestCancelIsTerminal(t *testing.T) {
	f := newFixture(t, Deps{})
	q := f.seedQuotation(StatusDraft)

	out, err := f.svc.Cancel(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)

	_, err = f.svc.Cancel(context.Background(), q.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
}
