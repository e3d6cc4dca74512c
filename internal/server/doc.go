// Package server runs the short-lived local HTTP server that completes OAuth logins for the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first).
// [Logging] and [Recover] are the two middlewares the callback server installs.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter, exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback.
//
// # Callback Server
//
// `songvote auth spotify` and `songvote auth youtube` start a [CallbackServer] on the configured
// host and port, open the consent page, and block in [CallbackServer.Wait] until the provider
// redirects back. The refresh token is then written to config.toml for `songvote serve`.
package server
