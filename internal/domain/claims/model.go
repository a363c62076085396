package claims

import (
	"time"

	"github.com/google/uuid"
)

// Claim lifecycle statuses. The values form the wire category codes of the
// adjudication entries; they look like a bitmask but are never combined.
const (
	StatusRejected  = 1
	StatusEntered   = 2
	StatusChecked   = 4
	StatusProcessed = 8
	StatusValuated  = 16
)

// LineKind discriminates the two concrete line-item variants.
type LineKind string

const (
	// KindProduct is a billable product (maps to a Medication reference).
	KindProduct LineKind = "item"
	// KindService is a billable service (maps to an ActivityDefinition reference).
	KindService LineKind = "service"
)

// DiagnosisSlots is the number of diagnosis-code slots on a claim: one
// primary plus four secondary.
const DiagnosisSlots = 5

// Claim maps to the claim table.
type Claim struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	Status       int        `db:"status" json:"status"`
	ReviewStatus int        `db:"review_status" json:"review_status"`
	InsureeID    uuid.UUID  `db:"insuree_id" json:"insuree_id"`
	AdminID      *uuid.UUID `db:"admin_id" json:"admin_id,omitempty"`
	FeedbackID   *uuid.UUID `db:"feedback_id" json:"feedback_id,omitempty"`
	VisitType    *string    `db:"visit_type" json:"visit_type,omitempty"`
	Claimed      *float64   `db:"claimed" json:"claimed,omitempty"`
	Approved     *float64   `db:"approved" json:"approved,omitempty"`
	Valuated     *float64   `db:"valuated" json:"valuated,omitempty"`
	DateClaimed  time.Time  `db:"date_claimed" json:"date_claimed"`
	DateFrom     *time.Time `db:"date_from" json:"date_from,omitempty"`
	DateTo       *time.Time `db:"date_to" json:"date_to,omitempty"`
	ICDCode      *string    `db:"icd_code" json:"icd_code,omitempty"`
	ICD1Code     *string    `db:"icd1_code" json:"icd1_code,omitempty"`
	ICD2Code     *string    `db:"icd2_code" json:"icd2_code,omitempty"`
	ICD3Code     *string    `db:"icd3_code" json:"icd3_code,omitempty"`
	ICD4Code     *string    `db:"icd4_code" json:"icd4_code,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	// Transient collections populated by the reverse converter; the store
	// persists them after a successful apply. Never read on the forward path.
	Items    []*LineItem `db:"-" json:"-"`
	Services []*LineItem `db:"-" json:"-"`
}

// DiagnosisSlot returns the diagnosis code in the given slot (0 = primary).
func (c *Claim) DiagnosisSlot(slot int) *string {
	switch slot {
	case 0:
		return c.ICDCode
	case 1:
		return c.ICD1Code
	case 2:
		return c.ICD2Code
	case 3:
		return c.ICD3Code
	case 4:
		return c.ICD4Code
	}
	return nil
}

// SetDiagnosisSlot sets or clears the diagnosis code in the given slot.
func (c *Claim) SetDiagnosisSlot(slot int, code *string) {
	switch slot {
	case 0:
		c.ICDCode = code
	case 1:
		c.ICD1Code = code
	case 2:
		c.ICD2Code = code
	case 3:
		c.ICD3Code = code
	case 4:
		c.ICD4Code = code
	}
}

// LineItem maps to the claim_item table and covers both variants: a product
// line (Kind == KindProduct, TargetID references the product registry) and a
// service line (Kind == KindService, TargetID references the service registry).
//
// The price fields populate progressively as the claim advances:
// PriceApproved once status >= checked, PriceAdjusted once status >= processed,
// PriceValuated once status == valuated. QtyApproved is set only when it
// differs from QtyProvided. A zero RejectionReason means not rejected.
type LineItem struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ClaimID         uuid.UUID `db:"claim_id" json:"claim_id"`
	Kind            LineKind  `db:"kind" json:"kind"`
	TargetID        uuid.UUID `db:"target_id" json:"target_id"`
	Code            string    `db:"code" json:"code"`
	Sequence        int       `db:"sequence" json:"sequence"`
	Status          int       `db:"status" json:"status"`
	QtyProvided     float64   `db:"qty_provided" json:"qty_provided"`
	QtyApproved     *float64  `db:"qty_approved" json:"qty_approved,omitempty"`
	PriceAsked      float64   `db:"price_asked" json:"price_asked"`
	PriceApproved   *float64  `db:"price_approved" json:"price_approved,omitempty"`
	PriceAdjusted   *float64  `db:"price_adjusted" json:"price_adjusted,omitempty"`
	PriceValuated   *float64  `db:"price_valuated" json:"price_valuated,omitempty"`
	RejectionReason int       `db:"rejection_reason" json:"rejection_reason"`
	PriceOrigin     *string   `db:"price_origin" json:"price_origin,omitempty"`
}

// Rejected reports whether the line item carries a rejection reason.
func (li *LineItem) Rejected() bool { return li.RejectionReason != 0 }

// ClaimAdmin is the administrator who submitted the claim (FHIR Practitioner).
type ClaimAdmin struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Code string    `db:"code" json:"code"`
	Name string    `db:"name" json:"name"`
}

// Feedback is a reviewer feedback record attached to a claim
// (FHIR CommunicationRequest).
type Feedback struct {
	ID      uuid.UUID `db:"id" json:"id"`
	ClaimID uuid.UUID `db:"claim_id" json:"claim_id"`
}

// Diagnosis is an ICD registry entry.
type Diagnosis struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Code string    `db:"code" json:"code"`
	Name string    `db:"name" json:"name"`
}
