// Package policy gates provider operations with OPA Rego policies. The
// planned operation (create N machines, delete these machines) is
// evaluated against built-in and user-supplied policies before any
// CloudAPI call is made; violations at error severity abort the run.
package policy
