// package polls runs the vote on each nominated track
//
// A poll is opened with a fixed quorum, max(1, ceil(members/2)), and resolves the first
// time either tally reaches it. The YES tally is checked first. Resolution happens inside
// the manager's lock together with removal from the live set, so a poll produces at most
// one outcome no matter how many ballots race. The side effects (closing the poll, the
// playlist commit, the ledger write, the announcement) run afterwards, outside the lock.
//
// Live polls are held in memory only.
package polls
