// Package dashboard loads the per-role views of ProgressIQ on top of the
// trackersdk client.
//
// Every loader fetches its slice of the data in one go and derives the
// counters in memory. Actions are single calls to the API followed by a full
// reload; nothing is updated optimistically. A Poller keeps a view fresh on
// an interval and never lets an older response replace a newer one.
package dashboard
