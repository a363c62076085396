package claims

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/openhis/claimsbridge/internal/platform/fhir"
)

// ResolvedTarget is the decoded form of a line-item reference: the line kind
// the reference's type tag selects, plus the target record id. Decoding the
// tag once up front keeps the downstream matching free of string branching.
type ResolvedTarget struct {
	Kind LineKind
	ID   uuid.UUID
}

// resolveItemTarget decodes a line-item reference into its target. A type
// tag outside the two known kinds, or a malformed id, is unresolvable.
func resolveItemTarget(ref *fhir.Reference) (ResolvedTarget, error) {
	if ref == nil || ref.Reference == "" {
		return ResolvedTarget{}, fmt.Errorf("%w: item reference extension has no reference", ErrMissingRequiredExtension)
	}
	resourceType, rawID := fhir.SplitReference(ref.Reference)

	var kind LineKind
	switch resourceType {
	case "Medication":
		kind = KindProduct
	case "ActivityDefinition":
		kind = KindService
	default:
		return ResolvedTarget{}, fmt.Errorf("%w: reference type %q", ErrUnresolvableReference, resourceType)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return ResolvedTarget{}, fmt.Errorf("%w: reference id %q: %v", ErrUnresolvableReference, rawID, err)
	}
	return ResolvedTarget{Kind: kind, ID: id}, nil
}

// ClaimIDFromDocument extracts the claim record id a response document links
// to: the resource id when present, else the official uuid identifier.
func ClaimIDFromDocument(doc *fhir.ClaimResponse) (uuid.UUID, error) {
	raw := doc.ID
	if raw == "" {
		for _, ident := range doc.Identifier {
			if ident.Type != nil && len(ident.Type.Coding) > 0 && ident.Type.Coding[0].Code == "UUID" {
				raw = ident.Value
				break
			}
		}
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: document carries no id or uuid identifier", ErrMissingClaimLink)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: claim id %q: %v", ErrMissingClaimLink, raw, err)
	}
	return id, nil
}

// ApplyResponse folds a ClaimResponse document back onto the claim record
// and its line items, in place. Reference existence against the registries
// is the caller's concern; this function only decodes and folds.
func ApplyResponse(claim *Claim, items []*LineItem, doc *fhir.ClaimResponse) error {
	status, err := statusForOutcome(doc.Outcome)
	if err != nil {
		return err
	}
	claim.Status = status

	if doc.Created != "" {
		created, err := fhir.ParseDate(doc.Created)
		if err != nil {
			return err
		}
		claim.DateClaimed = created.Time
	}

	if err := applyBillablePeriod(claim, doc.Extension); err != nil {
		return err
	}
	if ext := fhir.FindExtension(doc.Extension, reviewStatusExtensionURL); ext != nil {
		review, err := reviewStatusForDisplay(ext.ValueString)
		if err != nil {
			return err
		}
		claim.ReviewStatus = review
	}
	applyDiagnosisSlots(claim, doc.Extension)

	if err := applyRequestor(claim, doc.Requestor); err != nil {
		return err
	}
	if err := applyFeedback(claim, doc.CommunicationRequest); err != nil {
		return err
	}
	if doc.Patient != nil {
		_, rawID := fhir.SplitReference(doc.Patient.Reference)
		insureeID, err := uuid.Parse(rawID)
		if err != nil {
			return fmt.Errorf("%w: patient reference %q: %v", ErrUnresolvableReference, doc.Patient.Reference, err)
		}
		claim.InsureeID = insureeID
	}

	if doc.Type != nil && len(doc.Type.Coding) > 0 {
		code := doc.Type.Coding[0].Code
		if _, err := visitType(code); err != nil {
			return err
		}
		claim.VisitType = &code
	}

	applyTotals(claim, doc.Total)

	claim.Items = nil
	claim.Services = nil
	for i := range doc.Item {
		if err := applyItem(claim, items, &doc.Item[i]); err != nil {
			return err
		}
	}
	return nil
}

// applyBillablePeriod reads the mandatory billable-period extension into the
// claim's date range. Absent bounds clear the corresponding dates.
func applyBillablePeriod(claim *Claim, exts []fhir.Extension) error {
	ext := fhir.FindExtension(exts, billablePeriodExtensionURL)
	if ext == nil || ext.ValuePeriod == nil {
		return fmt.Errorf("%w: %s", ErrMissingRequiredExtension, billablePeriodExtensionURL)
	}
	claim.DateFrom = nil
	claim.DateTo = nil
	if ext.ValuePeriod.Start != nil {
		start := ext.ValuePeriod.Start.Time
		claim.DateFrom = &start
	}
	if ext.ValuePeriod.End != nil {
		end := ext.ValuePeriod.End.Time
		claim.DateTo = &end
	}
	return nil
}

// applyDiagnosisSlots rewrites all five diagnosis slots from the document:
// a slot with no extension is cleared, not preserved.
func applyDiagnosisSlots(claim *Claim, exts []fhir.Extension) {
	for slot := 0; slot < DiagnosisSlots; slot++ {
		ext := fhir.FindExtension(exts, diagnosisSlotURLs[slot])
		if ext == nil || ext.ValueCode == "" {
			claim.SetDiagnosisSlot(slot, nil)
			continue
		}
		code := ext.ValueCode
		claim.SetDiagnosisSlot(slot, &code)
	}
}

func applyRequestor(claim *Claim, requestor *fhir.Reference) error {
	if requestor == nil || requestor.Reference == "" {
		claim.AdminID = nil
		return nil
	}
	resourceType, rawID := fhir.SplitReference(requestor.Reference)
	if resourceType != "Practitioner" {
		return fmt.Errorf("%w: requestor type %q", ErrUnresolvableReference, resourceType)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("%w: requestor id %q: %v", ErrUnresolvableReference, rawID, err)
	}
	claim.AdminID = &id
	return nil
}

func applyFeedback(claim *Claim, requests []fhir.Reference) error {
	if len(requests) == 0 {
		claim.FeedbackID = nil
		return nil
	}
	resourceType, rawID := fhir.SplitReference(requests[0].Reference)
	if resourceType != "CommunicationRequest" {
		return fmt.Errorf("%w: communication request type %q", ErrUnresolvableReference, resourceType)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("%w: communication request id %q: %v", ErrUnresolvableReference, rawID, err)
	}
	claim.FeedbackID = &id
	return nil
}

// applyTotals folds the claimed/approved totals onto the claim amounts.
// Totals absent from the document leave the stored amounts untouched.
func applyTotals(claim *Claim, totals []fhir.ClaimResponseTotal) {
	for i := range totals {
		if len(totals[i].Category.Coding) == 0 {
			continue
		}
		value := totals[i].Amount.Value
		switch totals[i].Category.Coding[0].Code {
		case "submitted":
			claim.Claimed = &value
		case "benefit":
			claim.Approved = &value
		}
	}
}

// applyItem locates the claim line item a document item targets, folds the
// item's adjudication entries onto it, and records it in the claim's
// kind-specific transient collection so the store knows which line items the
// document actually touched.
func applyItem(claim *Claim, items []*LineItem, docItem *fhir.ClaimResponseItem) error {
	ext := fhir.FindExtension(docItem.Extension, itemReferenceExtensionURL)
	if ext == nil {
		return fmt.Errorf("%w: %s", ErrMissingRequiredExtension, itemReferenceExtensionURL)
	}
	target, err := resolveItemTarget(ext.ValueReference)
	if err != nil {
		return err
	}

	var match *LineItem
	for _, li := range items {
		if li.Kind == target.Kind && li.TargetID == target.ID {
			match = li
			break
		}
	}
	if match == nil {
		return fmt.Errorf("%w: no %s line item targets %s", ErrUnresolvableReference, target.Kind, target.ID)
	}
	if err := foldAdjudications(match, docItem.Adjudication); err != nil {
		return err
	}

	switch target.Kind {
	case KindProduct:
		claim.Items = append(claim.Items, match)
	case KindService:
		claim.Services = append(claim.Services, match)
	}
	return nil
}
