// Package ui renders ledger and search output for the terminal with lipgloss.
//
// The CLI prints through these helpers:
//   - [Leaderboard] : ranked reputation table for `ledger top`
//   - [Stats] : one nominator's record for `ledger stats`
//   - [History] : resolved nominations for `ledger history`
//   - [SearchResults] : both catalogs' hits for `search`
//
// Styles come from a single [Palette] so colors stay consistent across commands.
package ui
