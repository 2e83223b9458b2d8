// Package machine implements count reconciliation for SmartDataCenter
// machines. Given a desired instance count (absolute, or an exact count of
// machines bearing a selector tag set) the Reconciler lists what is already
// running, creates only the shortfall, and optionally waits for the created
// machines to converge on the "running" status. The inverse operation stops
// and deletes machines selected by tag set or machine ID.
//
// Reconciliation is single-pass and synchronous: provider calls are issued
// one at a time, nothing is retried, and no state is carried between
// invocations beyond what the provider itself stores remotely.
package machine
