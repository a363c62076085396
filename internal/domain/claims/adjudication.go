package claims

import (
	"fmt"
	"strconv"

	"github.com/openhis/claimsbridge/internal/platform/fhir"
)

// buildAdjudications produces the ordered adjudication trace for one line
// item. The trace lists every stage the claim has reached, not just the
// current one, so consumers can audit the progression:
//
//   - rejected line item, or claim still at status 1: a single "rejected"
//     entry carrying the asked price and provided quantity;
//   - otherwise one entry per reached stage, in increasing stage order,
//     with the stage-specific price (asked, approved, adjusted, valuated).
//
// Every entry carries the coded rejection reason (0 when not rejected).
func buildAdjudications(item *LineItem, claimStatus int) ([]fhir.Adjudication, error) {
	reason, err := rejectionReason(item.RejectionReason)
	if err != nil {
		return nil, err
	}

	if item.Rejected() || claimStatus == StatusRejected {
		adj, err := enteredAdjudication(StatusRejected, item, reason)
		if err != nil {
			return nil, err
		}
		return []fhir.Adjudication{adj}, nil
	}

	var entries []fhir.Adjudication
	if claimStatus >= StatusEntered {
		adj, err := enteredAdjudication(StatusEntered, item, reason)
		if err != nil {
			return nil, err
		}
		entries = append(entries, adj)
	}
	if claimStatus >= StatusChecked {
		adj, err := stageAdjudication(StatusChecked, item.PriceApproved, item, reason)
		if err != nil {
			return nil, err
		}
		entries = append(entries, adj)
	}
	if claimStatus >= StatusProcessed {
		adj, err := stageAdjudication(StatusProcessed, item.PriceAdjusted, item, reason)
		if err != nil {
			return nil, err
		}
		entries = append(entries, adj)
	}
	if claimStatus == StatusValuated {
		adj, err := stageAdjudication(StatusValuated, item.PriceValuated, item, reason)
		if err != nil {
			return nil, err
		}
		entries = append(entries, adj)
	}
	return entries, nil
}

// enteredAdjudication builds the "entered" (or "rejected") entry: quantity is
// always the provided quantity and the asked price is always included, even
// when zero.
func enteredAdjudication(status int, item *LineItem, reason fhir.CodeableConcept) (fhir.Adjudication, error) {
	category, err := statusCategory(status)
	if err != nil {
		return fhir.Adjudication{}, err
	}
	qty := item.QtyProvided
	return fhir.Adjudication{
		Category: category,
		Reason:   &reason,
		Amount:   &fhir.Money{Value: item.PriceAsked},
		Value:    &qty,
	}, nil
}

// stageAdjudication builds a checked/processed/valuated entry: quantity is
// the approved quantity when set and non-zero, else the provided quantity;
// the amount is included only when set and non-zero.
func stageAdjudication(status int, amount *float64, item *LineItem, reason fhir.CodeableConcept) (fhir.Adjudication, error) {
	category, err := statusCategory(status)
	if err != nil {
		return fhir.Adjudication{}, err
	}
	qty := item.QtyProvided
	if item.QtyApproved != nil && *item.QtyApproved != 0 {
		qty = *item.QtyApproved
	}
	adj := fhir.Adjudication{
		Category: category,
		Reason:   &reason,
		Value:    &qty,
	}
	if amount != nil && *amount != 0 {
		adj.Amount = &fhir.Money{Value: *amount}
	}
	return adj, nil
}

// foldAdjudications replays a document's adjudication entries onto a line
// item, in document order. Entry order is not validated: the folding rules
// never clear a later-stage field, so replaying an earlier stage cannot
// regress the item, but the final status is taken from the last entry
// processed (last-entry-wins). A document whose entries are out of canonical
// stage order therefore ends with that document's last category as status.
func foldAdjudications(item *LineItem, entries []fhir.Adjudication) error {
	for i := range entries {
		if err := foldAdjudication(item, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// foldAdjudication applies one adjudication entry to a line item, selecting
// the folding rule by the entry's category tag.
//
// The checked/processed guards deliberately compare the entry amount against
// the asked price — the submission baseline — rather than the immediately
// preceding stage's price, and the valuated guard compares against
// asked price x provided quantity (the valuated amount is a total, not a
// unit price). This mirrors the adjudication engine's behavior; whether
// "changed from baseline" or "changed from previous stage" was intended is
// ambiguous, and the baseline comparison is kept as specified.
func foldAdjudication(item *LineItem, adj *fhir.Adjudication) error {
	status, err := adjudicationStatus(adj)
	if err != nil {
		return err
	}

	switch status {
	case StatusRejected:
		reasonCode, err := adjudicationReasonCode(adj)
		if err != nil {
			return err
		}
		item.RejectionReason = reasonCode
		foldEntered(item, adj)
	case StatusEntered:
		foldEntered(item, adj)
	case StatusChecked:
		foldQuantity(item, adj)
		if adj.Amount != nil && adj.Amount.Value != item.PriceAsked {
			item.PriceApproved = &adj.Amount.Value
		}
	case StatusProcessed:
		foldQuantity(item, adj)
		if adj.Amount != nil && adj.Amount.Value != item.PriceAsked {
			item.PriceAdjusted = &adj.Amount.Value
		}
	case StatusValuated:
		foldQuantity(item, adj)
		if adj.Amount != nil && adj.Amount.Value != item.PriceAsked*item.QtyProvided {
			item.PriceValuated = &adj.Amount.Value
		}
	default:
		return fmt.Errorf("%w: adjudication category %d", ErrUnmappedCategory, status)
	}

	item.Status = status
	return nil
}

// foldEntered unconditionally restores the submitted quantity and price.
func foldEntered(item *LineItem, adj *fhir.Adjudication) {
	if adj.Value != nil {
		item.QtyProvided = *adj.Value
	}
	if adj.Amount != nil {
		item.PriceAsked = adj.Amount.Value
	}
}

// foldQuantity sets the approved quantity only when the entry's quantity is
// non-zero and differs from the provided quantity.
func foldQuantity(item *LineItem, adj *fhir.Adjudication) {
	if adj.Value != nil && *adj.Value != 0 && *adj.Value != item.QtyProvided {
		item.QtyApproved = adj.Value
	}
}

// adjudicationStatus extracts the category tag of an entry.
func adjudicationStatus(adj *fhir.Adjudication) (int, error) {
	if len(adj.Category.Coding) == 0 {
		return 0, fmt.Errorf("%w: adjudication entry has no category coding", ErrUnmappedCategory)
	}
	status, err := strconv.Atoi(adj.Category.Coding[0].Code)
	if err != nil {
		return 0, fmt.Errorf("%w: adjudication category code %q is not numeric", ErrUnmappedCategory, adj.Category.Coding[0].Code)
	}
	return status, nil
}

// adjudicationReasonCode extracts the coded rejection reason of an entry.
func adjudicationReasonCode(adj *fhir.Adjudication) (int, error) {
	if adj.Reason == nil || len(adj.Reason.Coding) == 0 {
		return 0, fmt.Errorf("%w: rejected adjudication entry has no reason coding", ErrUnmappedCategory)
	}
	code, err := strconv.Atoi(adj.Reason.Coding[0].Code)
	if err != nil {
		return 0, fmt.Errorf("%w: rejection reason code %q is not numeric", ErrUnmappedCategory, adj.Reason.Coding[0].Code)
	}
	return code, nil
}
