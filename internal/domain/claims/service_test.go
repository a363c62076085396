package claims

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/openhis/claimsbridge/internal/platform/fhir"
)

type mockClaimRepo struct {
	claims map[uuid.UUID]*Claim
	items  map[uuid.UUID][]*LineItem

	updatedClaims int
	updatedItems  int
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{
		claims: make(map[uuid.UUID]*Claim),
		items:  make(map[uuid.UUID][]*LineItem),
	}
}

func (m *mockClaimRepo) Create(ctx context.Context, c *Claim) error {
	m.claims[c.ID] = c
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, ok := m.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockClaimRepo) GetByCode(ctx context.Context, code string) (*Claim, error) {
	for _, c := range m.claims {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockClaimRepo) List(ctx context.Context, status, limit, offset int) ([]*Claim, error) {
	var matched []*Claim
	for _, c := range m.claims {
		if status == 0 || c.Status == status {
			matched = append(matched, c)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *mockClaimRepo) Count(ctx context.Context, status int) (int, error) {
	n := 0
	for _, c := range m.claims {
		if status == 0 || c.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockClaimRepo) Update(ctx context.Context, c *Claim) error {
	if _, ok := m.claims[c.ID]; !ok {
		return ErrNotFound
	}
	m.claims[c.ID] = c
	m.updatedClaims++
	return nil
}

func (m *mockClaimRepo) AddItem(ctx context.Context, li *LineItem) error {
	m.items[li.ClaimID] = append(m.items[li.ClaimID], li)
	return nil
}

func (m *mockClaimRepo) GetItems(ctx context.Context, claimID uuid.UUID) ([]*LineItem, error) {
	return m.items[claimID], nil
}

func (m *mockClaimRepo) GetItemByTarget(ctx context.Context, claimID uuid.UUID, kind LineKind, targetID uuid.UUID) (*LineItem, error) {
	for _, li := range m.items[claimID] {
		if li.Kind == kind && li.TargetID == targetID {
			return li, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockClaimRepo) UpdateItem(ctx context.Context, li *LineItem) error {
	m.updatedItems++
	return nil
}

type mockRegistryRepo struct {
	admins    map[uuid.UUID]*ClaimAdmin
	feedbacks map[uuid.UUID]*Feedback
	diagnoses map[string]*Diagnosis
}

func newMockRegistryRepo() *mockRegistryRepo {
	return &mockRegistryRepo{
		admins:    make(map[uuid.UUID]*ClaimAdmin),
		feedbacks: make(map[uuid.UUID]*Feedback),
		diagnoses: make(map[string]*Diagnosis),
	}
}

func (m *mockRegistryRepo) GetAdmin(ctx context.Context, id uuid.UUID) (*ClaimAdmin, error) {
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockRegistryRepo) GetFeedback(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	f, ok := m.feedbacks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

func (m *mockRegistryRepo) GetDiagnosisByCode(ctx context.Context, code string) (*Diagnosis, error) {
	d, ok := m.diagnoses[code]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// passthroughTx runs the function directly, outside any transaction.
type passthroughTx struct{ calls int }

func (p *passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

func newTestService() (*Service, *mockClaimRepo, *mockRegistryRepo, *passthroughTx) {
	claims := newMockClaimRepo()
	registry := newMockRegistryRepo()
	tx := &passthroughTx{}
	return NewService(claims, registry, tx), claims, registry, tx
}

func TestService_Response(t *testing.T) {
	svc, claims, registry, _ := newTestService()

	claim := testClaim()
	adminID := uuid.New()
	claim.AdminID = &adminID
	claims.claims[claim.ID] = claim
	claims.items[claim.ID] = []*LineItem{
		{Kind: KindProduct, TargetID: uuid.New(), Code: "P1", Sequence: 1, QtyProvided: 1, PriceAsked: 100},
	}
	registry.admins[adminID] = &ClaimAdmin{ID: adminID, Code: "ADM1", Name: "Jordan Mills"}

	doc, err := svc.Response(context.Background(), claim.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != claim.ID.String() {
		t.Errorf("unexpected document id: %s", doc.ID)
	}
	if len(doc.Item) != 1 {
		t.Errorf("expected 1 item, got %d", len(doc.Item))
	}
	if doc.Requestor == nil || doc.Requestor.Display != "Jordan Mills" {
		t.Errorf("expected requestor from registry, got %+v", doc.Requestor)
	}
}

func TestService_Response_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Response(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_List(t *testing.T) {
	svc, claims, _, _ := newTestService()

	entered := testClaim()
	claims.claims[entered.ID] = entered

	checked := testClaim()
	checked.ID = uuid.New()
	checked.Code = "CLM-002"
	checked.Status = StatusChecked
	claims.claims[checked.ID] = checked

	all, total, err := svc.List(context.Background(), 0, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || total != 2 {
		t.Errorf("expected 2 claims, got %d (total %d)", len(all), total)
	}

	filtered, total, err := svc.List(context.Background(), StatusChecked, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filtered) != 1 || total != 1 {
		t.Errorf("expected 1 checked claim, got %d (total %d)", len(filtered), total)
	}

	if _, _, err := svc.List(context.Background(), 3, 20, 0); !errors.Is(err, ErrUnmappedCategory) {
		t.Fatalf("expected ErrUnmappedCategory for status 3, got %v", err)
	}
}

func TestService_Apply(t *testing.T) {
	svc, claims, registry, tx := newTestService()

	claim := testClaim()
	targetID := uuid.New()
	claims.claims[claim.ID] = claim
	claims.items[claim.ID] = []*LineItem{
		{Kind: KindProduct, TargetID: targetID, Code: "P1", Sequence: 1, QtyProvided: 1, PriceAsked: 100},
		// Not referenced by the document; must not be written back.
		{Kind: KindService, TargetID: uuid.New(), Code: "S1", Sequence: 1, QtyProvided: 1, PriceAsked: 50},
	}
	registry.diagnoses["A00"] = &Diagnosis{ID: uuid.New(), Code: "A00", Name: "Cholera"}

	doc := itemDoc("Medication", targetID, []fhir.Adjudication{
		statusAdj("2", fptr(100), 2),
		statusAdj("4", fptr(90), 2),
	})
	doc.ID = claim.ID.String()
	doc.Outcome = "checked"
	doc.Extension = append(doc.Extension, fhir.Extension{URL: "icd_0", ValueCode: "A00"})

	out, err := svc.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Outcome != "checked" {
		t.Errorf("expected outcome checked, got %s", out.Outcome)
	}
	if claim.Status != StatusChecked {
		t.Errorf("expected persisted status %d, got %d", StatusChecked, claim.Status)
	}
	if tx.calls != 1 {
		t.Errorf("expected 1 transaction, got %d", tx.calls)
	}
	if claims.updatedClaims != 1 || claims.updatedItems != 1 {
		t.Errorf("expected 1 claim + 1 item update, got %d/%d", claims.updatedClaims, claims.updatedItems)
	}
	if len(claim.Items) != 1 || len(claim.Services) != 0 {
		t.Errorf("only the resolved product may be collected, got %d/%d", len(claim.Items), len(claim.Services))
	}

	li := claims.items[claim.ID][0]
	if li.PriceApproved == nil || *li.PriceApproved != 90 {
		t.Errorf("expected folded priceApproved 90, got %v", li.PriceApproved)
	}
}

func TestService_Apply_MissingClaim(t *testing.T) {
	svc, _, _, _ := newTestService()

	doc := minimalDoc("entered")
	doc.ID = uuid.NewString()

	_, err := svc.Apply(context.Background(), doc)
	if !errors.Is(err, ErrMissingClaimLink) {
		t.Fatalf("expected ErrMissingClaimLink, got %v", err)
	}
}

func TestService_Apply_NoClaimLink(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Apply(context.Background(), minimalDoc("entered"))
	if !errors.Is(err, ErrMissingClaimLink) {
		t.Fatalf("expected ErrMissingClaimLink, got %v", err)
	}
}

func TestService_Apply_UnknownDiagnosis(t *testing.T) {
	svc, claims, _, tx := newTestService()

	claim := testClaim()
	claims.claims[claim.ID] = claim

	doc := minimalDoc("entered")
	doc.ID = claim.ID.String()
	doc.Extension = append(doc.Extension, fhir.Extension{URL: "icd_0", ValueCode: "Z99"})

	_, err := svc.Apply(context.Background(), doc)
	if !errors.Is(err, ErrUnresolvableReference) {
		t.Fatalf("expected ErrUnresolvableReference, got %v", err)
	}
	if tx.calls != 0 {
		t.Error("nothing may be persisted when a reference fails to resolve")
	}
}

func TestService_Apply_UnknownAdmin(t *testing.T) {
	svc, claims, _, _ := newTestService()

	claim := testClaim()
	claim.ICDCode = nil
	claims.claims[claim.ID] = claim

	doc := minimalDoc("entered")
	doc.ID = claim.ID.String()
	doc.Requestor = &fhir.Reference{Reference: "Practitioner/" + uuid.NewString()}

	_, err := svc.Apply(context.Background(), doc)
	if !errors.Is(err, ErrUnresolvableReference) {
		t.Fatalf("expected ErrUnresolvableReference, got %v", err)
	}
}
