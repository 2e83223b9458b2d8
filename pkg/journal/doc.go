// Package journal records an audit trail of provisioning runs in a local
// SQLite database. The journal is purely observational: reconciliation
// decisions are made from live provider state on every run, never from
// journaled history.
package journal
