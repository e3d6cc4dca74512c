// Package models defines the value types that flow through the nomination pipeline.
//
//   - [CatalogResult] : a track as returned by one catalog search, normalized
//   - [PendingRequest] : both result sets of one search, parked behind a correlation token
//   - [Poll] : the live vote on one nominated track
//   - [ScoreRecord] : a nominator's reputation counters
//   - [CommitReport] : per-catalog result of inserting an approved track
//   - [Resolution] : the single outcome recorded for a poll
//
// Polls and pending requests embed [CatalogResult] by value, so a poll never depends on a
// pending request that may already have expired.
package models
