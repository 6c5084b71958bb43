package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pzklab/dietetics-api/internal/model"
)

// fakeGrants serves canned grants keyed by (user, module).
type fakeGrants struct {
	grants map[uint64]map[model.Module][]model.AccessGrant
	err    error
}

func (f *fakeGrants) ListByUserModule(_ context.Context, userID uint64, module model.Module) ([]model.AccessGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grants[userID][module], nil
}

func grantFor(userID uint64, m model.Module, start, end time.Time) model.AccessGrant {
	return model.AccessGrant{UserID: userID, Module: m, StartAt: start, ExpiresAt: end}
}

func TestHasActiveAccess(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	year := 365 * 24 * time.Hour
	revokedAt := now.Add(-time.Hour)

	active := grantFor(1, model.Module1, now.Add(-24*time.Hour), now.Add(year))
	expired := grantFor(1, model.Module2, now.Add(-2*year), now.Add(-year))
	revoked := grantFor(1, model.Module3, now.Add(-24*time.Hour), now.Add(year))
	revoked.RevokedAt = &revokedAt

	src := &fakeGrants{grants: map[uint64]map[model.Module][]model.AccessGrant{
		1: {
			model.Module1: {active},
			model.Module2: {expired},
			model.Module3: {revoked},
		},
	}}
	e := NewEvaluator(src)

	cases := []struct {
		name   string
		userID uint64
		module model.Module
		want   bool
	}{
		{"active grant", 1, model.Module1, true},
		{"expired grant", 1, model.Module2, false},
		{"revoked grant", 1, model.Module3, false},
		{"no grants at all", 2, model.Module1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.HasActiveAccess(context.Background(), tc.userID, tc.module, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("HasActiveAccess = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasActiveAccessExpiryBoundary(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(365 * 24 * time.Hour)
	src := &fakeGrants{grants: map[uint64]map[model.Module][]model.AccessGrant{
		7: {model.Module1: {grantFor(7, model.Module1, start, end)}},
	}}
	e := NewEvaluator(src)

	ok, err := e.HasActiveAccess(context.Background(), 7, model.Module1, end.Add(-time.Second))
	if err != nil || !ok {
		t.Fatalf("one second before expiry: got (%v, %v), want active", ok, err)
	}
	ok, err = e.HasActiveAccess(context.Background(), 7, model.Module1, end)
	if err != nil || ok {
		t.Fatalf("exactly at expiry: got (%v, %v), want inactive", ok, err)
	}
}

func TestEvaluateMaterial(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	src := &fakeGrants{grants: map[uint64]map[model.Module][]model.AccessGrant{
		1: {model.Module1: {grantFor(1, model.Module1, now.Add(-time.Hour), now.Add(time.Hour))}},
	}}
	e := NewEvaluator(src)

	mat := func(status string, module model.Module) model.Material {
		return model.Material{ID: "m", Module: module, Status: status}
	}

	cases := []struct {
		name     string
		userID   uint64
		material model.Material
		want     Result
	}{
		{"published with access", 1, mat(model.MaterialPublished, model.Module1), Result{State: StateUnlocked}},
		{"published without access", 1, mat(model.MaterialPublished, model.Module2), Result{State: StateLocked, Reason: ReasonNoModuleAccess}},
		{"publish soon despite access", 1, mat(model.MaterialPublishSoon, model.Module1), Result{State: StateLocked, Reason: ReasonPublishSoon}},
		{"draft hidden even with access", 1, mat(model.MaterialDraft, model.Module1), Result{State: StateNotFound}},
		{"archived hidden even with access", 1, mat(model.MaterialArchived, model.Module1), Result{State: StateNotFound}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.EvaluateMaterial(context.Background(), tc.userID, tc.material, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("EvaluateMaterial = %+v, want %+v", got, tc.want)
			}
		})
	}
}

// A draft and an archived material must produce byte-for-byte the same
// outcome, so clients cannot tell unpublished content from missing.
func TestEvaluateMaterialHiddenStatesIndistinguishable(t *testing.T) {
	now := time.Now().UTC()
	e := NewEvaluator(&fakeGrants{})

	draft, err := e.EvaluateMaterial(context.Background(), 1, model.Material{Status: model.MaterialDraft, Module: model.Module1}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	archived, err := e.EvaluateMaterial(context.Background(), 1, model.Material{Status: model.MaterialArchived, Module: model.Module1}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft != archived {
		t.Fatalf("draft result %+v differs from archived result %+v", draft, archived)
	}
	if draft.Reason != "" {
		t.Fatalf("hidden material leaked a reason: %+v", draft)
	}
}

func TestEvaluateMaterialGrantSourceError(t *testing.T) {
	boom := errors.New("db down")
	e := NewEvaluator(&fakeGrants{err: boom})

	_, err := e.EvaluateMaterial(context.Background(), 1,
		model.Material{Status: model.MaterialPublished, Module: model.Module1}, time.Now().UTC())
	if !errors.Is(err, boom) {
		t.Fatalf("expected grant source error, got %v", err)
	}
}
