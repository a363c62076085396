package claims

import (
	"fmt"
	"sort"
)

// ItemDescriptor is one entry of the canonical line-item enumeration shared
// by the Claim and ClaimResponse documents. Sequence is the 1-based position
// in the document's item list.
type ItemDescriptor struct {
	Sequence int
	Category LineKind
	Code     string
}

// EnumerateLineItems produces the canonical, stably-ordered line-item
// descriptors for a claim: product lines first, then service lines, each
// group ordered by stored sequence. Both documents number items from this
// enumeration, so itemSequence cross-references between them stay valid.
func EnumerateLineItems(items []*LineItem) []ItemDescriptor {
	ordered := orderLineItems(items)

	descriptors := make([]ItemDescriptor, 0, len(ordered))
	for i, li := range ordered {
		descriptors = append(descriptors, ItemDescriptor{
			Sequence: i + 1,
			Category: li.Kind,
			Code:     li.Code,
		})
	}
	return descriptors
}

// orderLineItems returns a copy of items in canonical document order:
// product lines first, then service lines, each group by stored sequence.
func orderLineItems(items []*LineItem) []*LineItem {
	ordered := make([]*LineItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Kind != ordered[j].Kind {
			return ordered[i].Kind == KindProduct
		}
		return ordered[i].Sequence < ordered[j].Sequence
	})
	return ordered
}

// targetResourceType maps a line kind to its reference type tag.
func targetResourceType(kind LineKind) (string, error) {
	switch kind {
	case KindProduct:
		return "Medication", nil
	case KindService:
		return "ActivityDefinition", nil
	}
	return "", fmt.Errorf("%w: line kind %q", ErrUnmappedCategory, kind)
}
