package claims

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/openhis/claimsbridge/internal/platform/fhir"
)

// TxRunner runs a function inside a database transaction carried on the
// context, so the repositories executed within it share one transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	claims   ClaimRepository
	registry RegistryRepository
	tx       TxRunner
}

func NewService(claims ClaimRepository, registry RegistryRepository, tx TxRunner) *Service {
	return &Service{claims: claims, registry: registry, tx: tx}
}

// Response loads a claim and renders it as a ClaimResponse document.
func (s *Service) Response(ctx context.Context, id uuid.UUID) (*fhir.ClaimResponse, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.claims.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	admin, feedback, err := s.loadLinks(ctx, claim)
	if err != nil {
		return nil, err
	}
	return BuildResponse(claim, items, admin, feedback)
}

// List pages through claims, optionally filtered by lifecycle status
// (0 = all). It returns the page and the total count for the filter.
func (s *Service) List(ctx context.Context, status, limit, offset int) ([]*Claim, int, error) {
	if status != 0 {
		if _, err := outcomeForStatus(status); err != nil {
			return nil, 0, err
		}
	}
	claims, err := s.claims.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.claims.Count(ctx, status)
	if err != nil {
		return nil, 0, err
	}
	return claims, total, nil
}

// Apply folds a ClaimResponse document onto the claim it links to, verifies
// every reference the document carries against the registries, and persists
// the claim and its line items in one transaction. It returns the document
// rendered from the updated record.
func (s *Service) Apply(ctx context.Context, doc *fhir.ClaimResponse) (*fhir.ClaimResponse, error) {
	id, err := ClaimIDFromDocument(doc)
	if err != nil {
		return nil, err
	}

	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: claim %s", ErrMissingClaimLink, id)
		}
		return nil, err
	}
	items, err := s.claims.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ApplyResponse(claim, items, doc); err != nil {
		return nil, err
	}

	admin, feedback, err := s.resolveLinks(ctx, claim)
	if err != nil {
		return nil, err
	}

	// Only the line items the document resolved are written back; fetched
	// items the document never referenced stay untouched.
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Update(ctx, claim); err != nil {
			return err
		}
		for _, li := range claim.Items {
			if err := s.claims.UpdateItem(ctx, li); err != nil {
				return err
			}
		}
		for _, li := range claim.Services {
			if err := s.claims.UpdateItem(ctx, li); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return BuildResponse(claim, items, admin, feedback)
}

// loadLinks fetches the admin and feedback records a claim links to.
func (s *Service) loadLinks(ctx context.Context, claim *Claim) (*ClaimAdmin, *Feedback, error) {
	var admin *ClaimAdmin
	if claim.AdminID != nil {
		a, err := s.registry.GetAdmin(ctx, *claim.AdminID)
		if err != nil {
			return nil, nil, err
		}
		admin = a
	}
	var feedback *Feedback
	if claim.FeedbackID != nil {
		f, err := s.registry.GetFeedback(ctx, *claim.FeedbackID)
		if err != nil {
			return nil, nil, err
		}
		feedback = f
	}
	return admin, feedback, nil
}

// resolveLinks verifies that every registry reference a folded document left
// on the claim resolves to an existing record. A miss is an unresolvable
// reference, not a missing record: the document named something that does
// not exist.
func (s *Service) resolveLinks(ctx context.Context, claim *Claim) (*ClaimAdmin, *Feedback, error) {
	admin, feedback, err := s.loadLinks(ctx, claim)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnresolvableReference, err)
		}
		return nil, nil, err
	}

	for slot := 0; slot < DiagnosisSlots; slot++ {
		code := claim.DiagnosisSlot(slot)
		if code == nil {
			continue
		}
		if _, err := s.registry.GetDiagnosisByCode(ctx, *code); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, nil, fmt.Errorf("%w: diagnosis code %q", ErrUnresolvableReference, *code)
			}
			return nil, nil, err
		}
	}
	return admin, feedback, nil
}
