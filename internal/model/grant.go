package model

import "time"

// Module identifies one purchasable unit of the paid content program.
// The program currently ships three modules numbered 1..3.
type Module uint8

// Known content modules.  The numbering is part of the purchase items
// and of the access_grants.module column, so it must stay stable.
const (
	Module1 Module = 1
	Module2 Module = 2
	Module3 Module = 3
)

// AllModules lists every module in the program, in order.  Bundle
// purchases grant each of them.
var AllModules = []Module{Module1, Module2, Module3}

// ValidModule reports whether m is one of the known content modules.
func ValidModule(m Module) bool {
	return m >= Module1 && m <= Module3
}

// AccessGrant represents a user's time-bounded entitlement to one
// content module, as stored in the `access_grants` table.  Grants are
// append-only: they are created by the purchase reconciliation flow,
// optionally revoked by an administrator, and never deleted.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owner of the entitlement.
//  Module     – content module the grant unlocks.
//  StartAt    – beginning of the entitlement window (inclusive).
//  ExpiresAt  – end of the entitlement window (exclusive).
//  RevokedAt  – when an administrator revoked the grant (null if never).
//  PurchaseID – purchase transaction that produced the grant (nullable
//               for grants issued manually).
//  CreatedAt  – timestamp of creation.
type AccessGrant struct {
	ID         uint64     // access_grants.id
	UserID     uint64     // access_grants.user_id
	Module     Module     // access_grants.module
	StartAt    time.Time  // access_grants.start_at
	ExpiresAt  time.Time  // access_grants.expires_at
	RevokedAt  *time.Time // access_grants.revoked_at (nullable)
	PurchaseID *string    // access_grants.purchase_id (nullable)
	CreatedAt  time.Time  // access_grants.created_at
}

// ActiveAt reports whether the grant confers access at instant t.  The
// entitlement window is half-open: t exactly at StartAt is inside, t
// exactly at ExpiresAt is outside.  A revoked grant is never active.
func (g AccessGrant) ActiveAt(t time.Time) bool {
	if g.RevokedAt != nil {
		return false
	}
	return !t.Before(g.StartAt) && t.Before(g.ExpiresAt)
}
