package claims

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/openhis/claimsbridge/internal/platform/fhir"
)

func newTestHandler(t *testing.T) (*Handler, *mockClaimRepo, *mockRegistryRepo) {
	t.Helper()
	svc, claims, registry, _ := newTestService()
	return NewHandler(svc), claims, registry
}

func echoCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func seedClaim(claims *mockClaimRepo) (*Claim, uuid.UUID) {
	claim := testClaim()
	targetID := uuid.New()
	claims.claims[claim.ID] = claim
	claims.items[claim.ID] = []*LineItem{
		{Kind: KindProduct, TargetID: targetID, Code: "P1", Sequence: 1, QtyProvided: 1, PriceAsked: 100},
	}
	return claim, targetID
}

func TestHandler_ListClaims(t *testing.T) {
	h, claims, _ := newTestHandler(t)
	seedClaim(claims)

	c, rec := echoCtx(http.MethodGet, "/api/v1/claims?limit=10", "")
	if err := h.ListClaims(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var page struct {
		Data  []json.RawMessage `json:"data"`
		Total int               `json:"total"`
		Limit int               `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Errorf("expected 1 claim, got %d (total %d)", len(page.Data), page.Total)
	}
	if page.Limit != 10 {
		t.Errorf("expected limit 10, got %d", page.Limit)
	}
}

func TestHandler_ListClaims_BadStatus(t *testing.T) {
	h, _, _ := newTestHandler(t)

	c, _ := echoCtx(http.MethodGet, "/api/v1/claims?status=7", "")
	err := h.ListClaims(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_GetResponse(t *testing.T) {
	h, claims, _ := newTestHandler(t)
	claim, _ := seedClaim(claims)

	c, rec := echoCtx(http.MethodGet, "/api/v1/claims/"+claim.ID.String()+"/response", "")
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())

	if err := h.GetResponse(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var doc fhir.ClaimResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ResourceType != "ClaimResponse" || doc.ID != claim.ID.String() {
		t.Errorf("unexpected document: %s/%s", doc.ResourceType, doc.ID)
	}
}

func TestHandler_GetResponse_NotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)

	c, _ := echoCtx(http.MethodGet, "/api/v1/claims/x/response", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetResponse(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_GetResponse_BadID(t *testing.T) {
	h, _, _ := newTestHandler(t)

	c, _ := echoCtx(http.MethodGet, "/api/v1/claims/x/response", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.GetResponse(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func applyBody(t *testing.T, doc *fhir.ClaimResponse) string {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestHandler_ApplyResponse(t *testing.T) {
	h, claims, registry := newTestHandler(t)
	claim, targetID := seedClaim(claims)
	registry.diagnoses["A00"] = &Diagnosis{ID: uuid.New(), Code: "A00", Name: "Cholera"}

	doc := itemDoc("Medication", targetID, []fhir.Adjudication{
		statusAdj("2", fptr(100), 1),
	})
	doc.Extension = append(doc.Extension, fhir.Extension{URL: "icd_0", ValueCode: "A00"})

	c, rec := echoCtx(http.MethodPut, "/api/v1/claims/"+claim.ID.String()+"/response", applyBody(t, doc))
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())

	if err := h.ApplyResponse(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if claim.Status != StatusEntered {
		t.Errorf("expected persisted status %d, got %d", StatusEntered, claim.Status)
	}
}

func TestHandler_ApplyResponse_WrongResourceType(t *testing.T) {
	h, claims, _ := newTestHandler(t)
	claim, _ := seedClaim(claims)

	c, _ := echoCtx(http.MethodPut, "/api/v1/claims/"+claim.ID.String()+"/response",
		`{"resourceType":"Claim"}`)
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())

	err := h.ApplyResponse(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ApplyResponse_UnknownOutcome(t *testing.T) {
	h, claims, _ := newTestHandler(t)
	claim, _ := seedClaim(claims)

	doc := minimalDoc("complete")
	c, _ := echoCtx(http.MethodPut, "/api/v1/claims/"+claim.ID.String()+"/response", applyBody(t, doc))
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())

	err := h.ApplyResponse(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestHandler_GetResponseFHIR(t *testing.T) {
	h, claims, _ := newTestHandler(t)
	claim, _ := seedClaim(claims)

	c, rec := echoCtx(http.MethodGet, "/fhir/ClaimResponse/"+claim.ID.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())

	if err := h.GetResponseFHIR(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetResponseFHIR_NotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)

	c, rec := echoCtx(http.MethodGet, "/fhir/ClaimResponse/x", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	if err := h.GetResponseFHIR(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var outcome fhir.OperationOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.ResourceType != "OperationOutcome" || outcome.Issue[0].Code != "not-found" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestHandler_ApplyResponseFHIR(t *testing.T) {
	h, claims, _ := newTestHandler(t)
	claim, targetID := seedClaim(claims)

	doc := itemDoc("Medication", targetID, []fhir.Adjudication{
		statusAdj("2", fptr(100), 1),
	})
	doc.Outcome = "checked"

	c, rec := echoCtx(http.MethodPut, "/fhir/ClaimResponse/"+claim.ID.String(), applyBody(t, doc))
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())

	if err := h.ApplyResponseFHIR(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var out fhir.ClaimResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Outcome != "checked" {
		t.Errorf("expected outcome checked, got %s", out.Outcome)
	}
}

func TestHandler_ApplyResponseFHIR_MissingClaim(t *testing.T) {
	h, _, _ := newTestHandler(t)

	id := uuid.NewString()
	doc := minimalDoc("entered")

	c, rec := echoCtx(http.MethodPut, "/fhir/ClaimResponse/"+id, applyBody(t, doc))
	c.SetParamNames("id")
	c.SetParamValues(id)

	if err := h.ApplyResponseFHIR(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestApplyErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrMissingClaimLink, http.StatusNotFound},
		{ErrNotFound, http.StatusNotFound},
		{ErrUnmappedCategory, http.StatusUnprocessableEntity},
		{ErrUnresolvableReference, http.StatusUnprocessableEntity},
		{ErrMissingRequiredExtension, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := applyErrorStatus(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
