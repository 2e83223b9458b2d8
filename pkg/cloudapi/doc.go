// Package cloudapi is a minimal SmartDataCenter CloudAPI client covering
// the machine operations the reconciler needs: list, get, create, stop,
// delete, and raw record retrieval. Requests are authenticated with
// HTTP-Signature: the Date header is signed with the account's SSH private
// key and referenced by key fingerprint.
package cloudapi
