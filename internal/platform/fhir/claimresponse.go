package fhir

// ClaimResponse is the FHIR R4 ClaimResponse resource, limited to the elements
// this service produces and consumes. Field order follows the R4 element order.
type ClaimResponse struct {
	ResourceType         string               `json:"resourceType"`
	ID                   string               `json:"id,omitempty"`
	Extension            []Extension          `json:"extension,omitempty"`
	Identifier           []Identifier         `json:"identifier,omitempty"`
	Status               string               `json:"status"`
	Type                 *CodeableConcept     `json:"type,omitempty"`
	Use                  string               `json:"use"`
	Patient              *Reference           `json:"patient,omitempty"`
	Created              string               `json:"created"`
	Insurer              *Reference           `json:"insurer,omitempty"`
	Requestor            *Reference           `json:"requestor,omitempty"`
	Outcome              string               `json:"outcome"`
	Item                 []ClaimResponseItem  `json:"item,omitempty"`
	Total                []ClaimResponseTotal `json:"total,omitempty"`
	ProcessNote          []ProcessNote        `json:"processNote,omitempty"`
	CommunicationRequest []Reference          `json:"communicationRequest,omitempty"`
}

// ClaimResponseItem is the adjudication block for one claim line item.
// ItemSequence matches the item numbering of the corresponding Claim document.
type ClaimResponseItem struct {
	Extension    []Extension    `json:"extension,omitempty"`
	ItemSequence int            `json:"itemSequence"`
	NoteNumber   []int          `json:"noteNumber,omitempty"`
	Adjudication []Adjudication `json:"adjudication"`
}

// Adjudication is one (category, value, amount, reason) tuple. Value carries
// the quantity; Amount is omitted where the stage has no meaningful price.
type Adjudication struct {
	Category CodeableConcept  `json:"category"`
	Reason   *CodeableConcept `json:"reason,omitempty"`
	Amount   *Money           `json:"amount,omitempty"`
	Value    *float64         `json:"value,omitempty"`
}

type ClaimResponseTotal struct {
	Category CodeableConcept `json:"category"`
	Amount   Money           `json:"amount"`
}

type ProcessNote struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// FindExtension returns the first extension with the given url, or nil.
func FindExtension(exts []Extension, url string) *Extension {
	for i := range exts {
		if exts[i].URL == url {
			return &exts[i]
		}
	}
	return nil
}
