package claims

import (
	"fmt"
	"strconv"

	"github.com/openhis/claimsbridge/internal/platform/fhir"
)

// Wire-contract constants. These URLs and systems are fixed: changing any of
// them breaks interoperability with existing document consumers.
const (
	systemBaseURL = "https://fhir.openhis.org/"

	claimStatusSystem     = systemBaseURL + "CodeSystem/claim-status"
	visitTypeSystem       = systemBaseURL + "CodeSystem/claim-visit-type"
	rejectionReasonSystem = systemBaseURL + "CodeSystem/claim-rejection-reason"
	identifierTypeSystem  = systemBaseURL + "CodeSystem/identifier-type"
	adjudicationSystem    = "http://terminology.hl7.org/CodeSystem/adjudication.html"

	itemReferenceExtensionURL  = systemBaseURL + "StructureDefinition/claim-item-reference"
	reviewStatusExtensionURL   = systemBaseURL + "StructureDefinition/claim-review-status"
	billablePeriodExtensionURL = "billablePeriod"

	// InsurerReference is the fixed insurer literal stamped on every response.
	InsurerReference = "openHIS"
)

// diagnosisSlotURLs are the fixed extension urls of the five diagnosis slots,
// indexed by slot (0 = primary).
var diagnosisSlotURLs = [DiagnosisSlots]string{"icd_0", "icd_1", "icd_2", "icd_3", "icd_4"}

// claimStatuses is the canonical enumeration every table below is keyed by.
var claimStatuses = []int{StatusRejected, StatusEntered, StatusChecked, StatusProcessed, StatusValuated}

// statusDisplay labels adjudication categories.
var statusDisplay = map[int]string{
	StatusRejected:  "Rejected",
	StatusEntered:   "Entered",
	StatusChecked:   "Checked",
	StatusProcessed: "Processed",
	StatusValuated:  "Valuated",
}

// claimOutcome maps a claim status to the document outcome literal. The
// reverse map drives outcome-to-status on apply, so the table must stay
// injective.
var claimOutcome = map[int]string{
	StatusRejected:  "rejected",
	StatusEntered:   "entered",
	StatusChecked:   "checked",
	StatusProcessed: "processed",
	StatusValuated:  "valuated",
}

// reviewStatusDisplay maps claim review statuses to document status displays.
var reviewStatusDisplay = map[int]string{
	1:  "Idle",
	2:  "Not Selected",
	4:  "Selected for Review",
	8:  "Reviewed",
	16: "ByPassed",
}

var visitTypeDisplay = map[string]string{
	"E": "Emergency",
	"R": "Referral",
	"O": "Other",
}

// rejectionReasonDisplay covers every reason code the adjudication engine
// emits. Zero is "not rejected"; -1 is a manual medical-officer rejection.
var rejectionReasonDisplay = map[int]string{
	-1: "Rejected by a medical officer",
	0:  "Accepted",
	1:  "Item or service not in the registers",
	2:  "Item or service not in the facility pricelist",
	3:  "Item or service not covered by the insurance product",
	4:  "Item or service quantity above the allowed limit",
	5:  "Insuree waiting period not met",
	6:  "Insuree age outside the allowed bracket",
	7:  "Care type mismatch for the facility",
	8:  "Maximum number of visits exceeded",
	9:  "Maximum number of consultations exceeded",
	10: "Maximum number of surgeries exceeded",
	11: "Maximum number of deliveries exceeded",
	12: "Prior authorization required",
	13: "Maximum number of hospital admissions exceeded",
	14: "Maximum antenatal contacts exceeded",
	15: "Frequency limit not respected",
	16: "Duplicated claim line",
	17: "Insurance policy not active",
	18: "Insuree not covered at service date",
	19: "Claim submitted outside the allowed window",
}

// Reverse maps, built once at init. Construction panics on a duplicate
// display so a non-injective table is caught at startup, not at lookup time.
var (
	statusByOutcome       map[string]int
	reviewStatusByDisplay map[string]int
)

func init() {
	statusByOutcome = invertStatusTable("claim outcome", claimOutcome)
	reviewStatusByDisplay = invertStatusTable("review status", reviewStatusDisplay)
}

func invertStatusTable(name string, forward map[int]string) map[string]int {
	reverse := make(map[string]int, len(forward))
	for code, display := range forward {
		if _, dup := reverse[display]; dup {
			panic(fmt.Sprintf("claims: %s table is not injective: duplicate display %q", name, display))
		}
		reverse[display] = code
	}
	return reverse
}

// outcomeForStatus returns the document outcome for a claim status.
func outcomeForStatus(status int) (string, error) {
	outcome, ok := claimOutcome[status]
	if !ok {
		return "", fmt.Errorf("%w: claim status %d has no outcome mapping", ErrUnmappedCategory, status)
	}
	return outcome, nil
}

// statusForOutcome resolves a document outcome back to a claim status.
func statusForOutcome(outcome string) (int, error) {
	status, ok := statusByOutcome[outcome]
	if !ok {
		return 0, fmt.Errorf("%w: unknown outcome %q", ErrUnmappedCategory, outcome)
	}
	return status, nil
}

// statusCategory builds the adjudication category concept for a claim status.
func statusCategory(status int) (fhir.CodeableConcept, error) {
	display, ok := statusDisplay[status]
	if !ok {
		return fhir.CodeableConcept{}, fmt.Errorf("%w: claim status %d has no display mapping", ErrUnmappedCategory, status)
	}
	return fhir.NewCodeableConcept(claimStatusSystem, strconv.Itoa(status), display), nil
}

// rejectionReason builds the coded reason concept for a rejection-reason
// value; zero (not rejected) is a valid code.
func rejectionReason(code int) (fhir.CodeableConcept, error) {
	display, ok := rejectionReasonDisplay[code]
	if !ok {
		return fhir.CodeableConcept{}, fmt.Errorf("%w: unknown rejection reason code %d", ErrUnmappedCategory, code)
	}
	return fhir.NewCodeableConcept(rejectionReasonSystem, strconv.Itoa(code), display), nil
}

// reviewStatusFor returns the document display for a claim review status.
func reviewStatusFor(status int) (string, error) {
	display, ok := reviewStatusDisplay[status]
	if !ok {
		return "", fmt.Errorf("%w: review status %d has no display mapping", ErrUnmappedCategory, status)
	}
	return display, nil
}

// reviewStatusForDisplay resolves a review-status display back to its code.
func reviewStatusForDisplay(display string) (int, error) {
	status, ok := reviewStatusByDisplay[display]
	if !ok {
		return 0, fmt.Errorf("%w: unknown review status %q", ErrUnmappedCategory, display)
	}
	return status, nil
}

// visitType builds the visit-type concept for a claim's visit-type code.
func visitType(code string) (fhir.CodeableConcept, error) {
	display, ok := visitTypeDisplay[code]
	if !ok {
		return fhir.CodeableConcept{}, fmt.Errorf("%w: unknown visit type %q", ErrUnmappedCategory, code)
	}
	return fhir.NewCodeableConcept(visitTypeSystem, code, display), nil
}
