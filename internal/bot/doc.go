// package bot wires the Telegram update stream to the nomination pipeline
//
// Flow of a nomination:
//
//  1. /song <query> searches both catalogs and posts a keyboard of results. The results are
//     parked in the correlation cache under a short token carried in every button.
//  2. Pressing a result consumes the token, matches the track on the other catalog, posts a
//     recap with links and cover art, and opens a poll as a reply to it.
//  3. Poll answers are fed to the poll manager, which resolves the vote, commits approved
//     tracks, updates the ledger, and calls back into [Announcer].
//
// Updates are handled concurrently by a bounded worker group; the cache and the poll
// manager are safe for concurrent use.
package bot
