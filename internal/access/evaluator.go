// Package access decides whether a user may see paid content.  The
// evaluator is deliberately side-effect free: it takes the evaluation
// instant from the caller instead of reading the wall clock, so the
// same inputs always produce the same answer.
package access

import (
	"context"
	"time"

	"github.com/pzklab/dietetics-api/internal/model"
)

// GrantSource supplies the access grants recorded for a (user, module)
// pair.  In production it is backed by the grants repository; tests
// substitute an in-memory implementation.
type GrantSource interface {
	ListByUserModule(ctx context.Context, userID uint64, module model.Module) ([]model.AccessGrant, error)
}

// State is the three-way visibility outcome for a material.
type State string

// Material visibility states.  StateNotFound covers draft and archived
// materials as well as genuinely missing ones: the evaluator exposes no
// metadata for any of them, so unpublished content is indistinguishable
// from content that never existed.
const (
	StateUnlocked State = "unlocked"
	StateLocked   State = "locked"
	StateNotFound State = "not_found"
)

// Reason explains a locked outcome in machine-readable form.
type Reason string

// Lock reasons surfaced to clients so they can render the right
// call-to-action (a countdown vs. a purchase prompt).
const (
	ReasonPublishSoon    Reason = "publish_soon"
	ReasonNoModuleAccess Reason = "no_module_access"
)

// Result pairs a visibility state with its reason.  Reason is empty
// unless State is StateLocked.
type Result struct {
	State  State
	Reason Reason
}

// Evaluator computes module and material access from recorded grants.
type Evaluator struct {
	grants GrantSource
}

// NewEvaluator returns an Evaluator reading grants from g.
func NewEvaluator(g GrantSource) *Evaluator {
	if g == nil {
		panic("nil grant source passed to NewEvaluator")
	}
	return &Evaluator{grants: g}
}

// HasActiveAccess reports whether at least one grant for (userID,
// module) is active at instant now.  The entitlement window is
// half-open: a grant expiring exactly at now no longer counts.
func (e *Evaluator) HasActiveAccess(ctx context.Context, userID uint64, module model.Module, now time.Time) (bool, error) {
	grants, err := e.grants.ListByUserModule(ctx, userID, module)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.ActiveAt(now) {
			return true, nil
		}
	}
	return false, nil
}

// EvaluateMaterial computes the visibility of a single material for a
// user at instant now:
//
//   - DRAFT and ARCHIVED materials are not found, full stop.
//   - PUBLISH_SOON materials are locked regardless of module access;
//     coming-soon content is never actionable.
//   - PUBLISHED materials are unlocked iff the user holds an active
//     grant for the material's module.
func (e *Evaluator) EvaluateMaterial(ctx context.Context, userID uint64, m model.Material, now time.Time) (Result, error) {
	switch m.Status {
	case model.MaterialDraft, model.MaterialArchived:
		return Result{State: StateNotFound}, nil
	case model.MaterialPublishSoon:
		return Result{State: StateLocked, Reason: ReasonPublishSoon}, nil
	}
	ok, err := e.HasActiveAccess(ctx, userID, m.Module, now)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{State: StateLocked, Reason: ReasonNoModuleAccess}, nil
	}
	return Result{State: StateUnlocked}, nil
}
