// Package services implements the clients for every remote API the bot depends on.
//
// # Catalog Interfaces
//
// The pipeline sees catalogs through small interfaces: [Searcher], [PlaylistInserter], and
// [PlaylistLister]. [Catalog] combines the first two.
//
// # Spotify Implementation
//
// [SpotifyService] searches tracks and appends track URIs to a playlist. It authenticates with
// [oauth2] using a stored refresh token, so access tokens are renewed transparently.
//
// # YouTube Implementation
//
// [YouTubeService] wraps the YouTube Data API v3: search.list for lookups, playlistItems.list for
// paginated membership scans, playlistItems.insert for additions. Same OAuth2 refresh-token setup
// against Google's endpoints.
//
// # Telegram Implementation
//
// [TelegramService] is the chat transport: long-polled updates, messages with inline keyboards,
// two-option polls, poll closing, and member counts. Every call carries a bounded timeout.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which unwraps to [shared.ErrAPIRequest] and exposes the
// status code via [StatusCode]. Requests are throttled by a [rate.Limiter] built by [NewLimiter].
package services
