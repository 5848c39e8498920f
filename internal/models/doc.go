// Package models defines the core domain models for Billbook.
//
// # Models
//
//   - Mode: selects the line item variant (Area or Manual) and isolates all per-mode state
//   - LineItem: one priced row on a bill, tagged by Kind with exactly one detail block
//   - Bill: header (company, customer, tax settings) plus the ordered line items of one mode
//   - ArchiveEntry: a saved bill snapshot shown in the bill archive
//
// # Design Principles
//
// 1. **Explicit variants**: a LineItem carries a Kind discriminant; Area and Manual fields live in
// separate structs so one mode's fields can never be read as the other's.
// 2. **Amounts are fixed at write time**: derived amounts are rounded to 2 decimals when an item is
// created or updated, so stored and historied values never depend on display formatting.
// 3. **Value semantics**: Bill.Clone returns a deep copy; snapshots are plain JSON.
package models
