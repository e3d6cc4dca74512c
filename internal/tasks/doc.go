// Package tasks implements the catalog side of a nomination: searching, matching, and committing.
//
// # Core Operations
//
//  1. [Aggregator.Search] : Concurrent search on YouTube and Spotify
//     - Each catalog runs under its own timeout
//     - A failing catalog contributes an empty list; the call never fails
//
//  2. [Matcher.Resolve] : Pick a result and find its counterpart
//     - Spotify pick: YouTube query "artist title", first hit
//     - YouTube pick: bracketed annotations stripped, Spotify query, first hit
//
//  3. [Committer.Commit] : Insert an approved track into both playlists
//     - YouTube is scanned page by page for the video first; a hit is a duplicate
//     - Spotify is inserted blind, once
//     - Each side yields its own [models.CommitStatus]
//
// # Progress Reporting
//
// [Committer.CommitWithProgress] emits [ProgressUpdate] values on an optional channel.
// Updates use select with default so a slow reader never blocks a commit.
package tasks
