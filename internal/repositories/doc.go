// Package repositories implements SQLite persistence for the reputation ledger.
//
// Key Implementations:
//   - [ScoreRepository] : per-user reputation and accepted/rejected counters, plus the
//     history of resolved nominations
//
// Score changes are applied inside a transaction that first inserts the user's row if it is
// absent and then updates it, so a first-time nominator never loses a delta. Nomination rows
// are unique per poll id; [ScoreRepository.RecordResolution] refuses a second outcome for the
// same poll with [shared.ErrAlreadyResolved].
package repositories
