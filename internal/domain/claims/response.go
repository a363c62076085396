package claims

import (
	"fmt"

	"github.com/openhis/claimsbridge/internal/platform/fhir"
)

// responseBuilder accumulates per-document state while converting a claim to
// a ClaimResponse. Process-note numbers are document-scoped, so one builder
// serves exactly one conversion.
type responseBuilder struct {
	claim *Claim
	notes []fhir.ProcessNote
}

// BuildResponse converts a claim record and its line items into a FHIR
// ClaimResponse document. admin and feedback may be nil; the corresponding
// elements are then omitted.
func BuildResponse(claim *Claim, items []*LineItem, admin *ClaimAdmin, feedback *Feedback) (*fhir.ClaimResponse, error) {
	b := &responseBuilder{claim: claim}

	resp := &fhir.ClaimResponse{
		ResourceType: "ClaimResponse",
		ID:           claim.ID.String(),
		Status:       "active",
		Use:          "claim",
		Created:      fhir.NewDate(claim.DateClaimed).String(),
		Identifier:   claimIdentifiers(claim),
	}

	outcome, err := outcomeForStatus(claim.Status)
	if err != nil {
		return nil, err
	}
	resp.Outcome = outcome

	respItems, err := b.buildItems(items)
	if err != nil {
		return nil, err
	}
	resp.Item = respItems
	resp.ProcessNote = b.notes

	resp.Patient = &fhir.Reference{
		Reference: fhir.FormatReference("Patient", claim.InsureeID.String()),
		Type:      "Patient",
	}

	resp.Total = buildTotals(claim)

	if feedback != nil {
		resp.CommunicationRequest = []fhir.Reference{{
			Reference: fhir.FormatReference("CommunicationRequest", feedback.ID.String()),
			Type:      "CommunicationRequest",
		}}
	}

	if claim.VisitType != nil {
		vt, err := visitType(*claim.VisitType)
		if err != nil {
			return nil, err
		}
		resp.Type = &vt
	}

	resp.Insurer = &fhir.Reference{Reference: InsurerReference}

	if admin != nil {
		resp.Requestor = &fhir.Reference{
			Reference: fhir.FormatReference("Practitioner", admin.ID.String()),
			Type:      "Practitioner",
			Display:   admin.Name,
		}
	}

	exts, err := rootExtensions(claim)
	if err != nil {
		return nil, err
	}
	resp.Extension = exts

	return resp, nil
}

// claimIdentifiers builds the two-identifier block every document carries:
// the human claim code and the record uuid.
func claimIdentifiers(claim *Claim) []fhir.Identifier {
	codeType := fhir.NewCodeableConcept(identifierTypeSystem, "Code", "Claim code")
	uuidType := fhir.NewCodeableConcept(identifierTypeSystem, "UUID", "Record identifier")
	return []fhir.Identifier{
		{Use: "usual", Type: &codeType, System: identifierTypeSystem, Value: claim.Code},
		{Use: "official", Type: &uuidType, System: identifierTypeSystem, Value: claim.ID.String()},
	}
}

// buildItems walks the canonical line-item enumeration the Claim document
// uses and builds one response item per descriptor, so itemSequence numbering
// matches between the two documents. A descriptor that matches no line item
// means the caller handed us an inconsistent snapshot.
func (b *responseBuilder) buildItems(items []*LineItem) ([]fhir.ClaimResponseItem, error) {
	descriptors := EnumerateLineItems(items)
	out := make([]fhir.ClaimResponseItem, 0, len(descriptors))
	for _, d := range descriptors {
		li := findLineItem(items, d.Category, d.Code)
		if li == nil {
			return nil, fmt.Errorf("%w: no %s line item with code %q", ErrUnresolvableReference, d.Category, d.Code)
		}
		item, err := b.buildItem(li, d.Sequence)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// findLineItem returns the first line item of the given kind and code.
func findLineItem(items []*LineItem, kind LineKind, code string) *LineItem {
	for _, li := range items {
		if li.Kind == kind && li.Code == code {
			return li
		}
	}
	return nil
}

func (b *responseBuilder) buildItem(li *LineItem, sequence int) (fhir.ClaimResponseItem, error) {
	adjudications, err := buildAdjudications(li, b.claim.Status)
	if err != nil {
		return fhir.ClaimResponseItem{}, err
	}

	targetType, err := targetResourceType(li.Kind)
	if err != nil {
		return fhir.ClaimResponseItem{}, err
	}

	item := fhir.ClaimResponseItem{
		ItemSequence: sequence,
		Adjudication: adjudications,
		Extension: []fhir.Extension{{
			URL: itemReferenceExtensionURL,
			ValueReference: &fhir.Reference{
				Reference: fhir.FormatReference(targetType, li.TargetID.String()),
				Type:      targetType,
				Display:   li.Code,
			},
		}},
	}

	if li.PriceOrigin != nil && *li.PriceOrigin != "" {
		item.NoteNumber = []int{b.addNote(*li.PriceOrigin)}
	}
	return item, nil
}

// addNote appends a process note and returns its 1-based number.
func (b *responseBuilder) addNote(text string) int {
	number := len(b.notes) + 1
	b.notes = append(b.notes, fhir.ProcessNote{Number: number, Text: text})
	return number
}

// buildTotals emits the claimed/approved totals. Totals appear only once the
// claim is valuated: the claimed total is always present (zero when the
// claim never recorded one), the approved total only when a non-zero benefit
// was recorded.
func buildTotals(claim *Claim) []fhir.ClaimResponseTotal {
	if claim.Status != StatusValuated {
		return nil
	}

	claimed := fhir.NewCodeableConcept(adjudicationSystem, "submitted", "Submitted Amount")
	claimed.Text = "Claimed"
	var claimedValue float64
	if claim.Claimed != nil {
		claimedValue = *claim.Claimed
	}
	totals := []fhir.ClaimResponseTotal{{Category: claimed, Amount: fhir.Money{Value: claimedValue}}}

	if claim.Approved != nil && *claim.Approved != 0 {
		approved := fhir.NewCodeableConcept(adjudicationSystem, "benefit", "Benefit Amount")
		approved.Text = "Approved"
		totals = append(totals, fhir.ClaimResponseTotal{Category: approved, Amount: fhir.Money{Value: *claim.Approved}})
	}
	return totals
}

// rootExtensions builds the document-level extension block: the billable
// period, the review status, and one entry per populated diagnosis slot.
func rootExtensions(claim *Claim) ([]fhir.Extension, error) {
	period := &fhir.Period{}
	if claim.DateFrom != nil {
		period.Start = fhir.NewDate(*claim.DateFrom)
	}
	if claim.DateTo != nil {
		period.End = fhir.NewDate(*claim.DateTo)
	}
	exts := []fhir.Extension{{URL: billablePeriodExtensionURL, ValuePeriod: period}}

	review, err := reviewStatusFor(claim.ReviewStatus)
	if err != nil {
		return nil, err
	}
	exts = append(exts, fhir.Extension{URL: reviewStatusExtensionURL, ValueString: review})

	for slot := 0; slot < DiagnosisSlots; slot++ {
		code := claim.DiagnosisSlot(slot)
		if code == nil || *code == "" {
			continue
		}
		exts = append(exts, fhir.Extension{URL: diagnosisSlotURLs[slot], ValueCode: *code})
	}
	return exts, nil
}
