// Package models defines the core domain records for Tallyhour.
//
// # Record Families
//
//   - User, Project, ProjectMember, ProjectInvitation: identity and
//     membership records, read-mostly.
//   - ActiveTimer: at most one per user, enforced by a singleton index key.
//   - TimeEntry, BudgetTransaction, PayPeriod, Earnings: the ledger.
//     Entries and transactions are immutable once written (a TimeEntry's
//     status may move Pending -> Completed, nothing else changes).
//   - UserFinancialSummary, ProjectFinancialSummary: derived rollups.
//     They are caches over the ledger and must always be reconstructible
//     from it.
//   - ProfitShare: output of one profit distribution run.
//
// # Design Principles
//
//  1. Records reference each other by ID strings, never by pointer, so a
//     record round-trips through the key-value store unchanged.
//  2. Status and role unions are typed string constants with Valid checks;
//     consumers switch over them exhaustively.
//  3. Timestamps are Unix seconds; calendar dates (entry dates, period
//     bounds) are "YYYY-MM-DD" strings so they sort correctly inside keys.
package models
