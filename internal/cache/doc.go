// package cache holds pending search results between a /song search and the user's pick.
//
// Entries are keyed by a short random token that travels in inline keyboard callback data.
// Each entry lives for a fixed TTL and is consumed at most once: [Store.Take] removes
// the entry in the same critical section that reads it, so two concurrent button presses
// on one keyboard resolve to exactly one winner.
//
// Nothing is persisted. A restart drops every in-flight search.
package cache
