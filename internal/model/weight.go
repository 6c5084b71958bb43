package model

import "time"

// WeightEntry is one weight measurement logged by a patient,
// mirroring the `weight_entries` table.  Weights are stored in grams
// so the column is a plain integer.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – patient who logged the entry.
//  WeightGrams – measured weight in grams.
//  MeasuredAt  – when the measurement was taken (client supplied).
//  CreatedAt   – when the row was written.
type WeightEntry struct {
	ID          uint64    // weight_entries.id
	UserID      uint64    // weight_entries.user_id
	WeightGrams uint32    // weight_entries.weight_grams
	MeasuredAt  time.Time // weight_entries.measured_at
	CreatedAt   time.Time // weight_entries.created_at
}
