// Package audit records append-only audit entries for sensitive mutations:
// role changes, member removals, invitation lifecycle, organization
// lifecycle, and session switches.
//
// Audit writes are strictly best-effort. Services call LogBestEffort after
// the primary mutation commits; a failed audit write is logged and
// swallowed, never surfaced to the user or used to roll anything back.
package audit
