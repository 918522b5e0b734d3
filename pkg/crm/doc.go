// Package crm holds the row-scoped business data that the tenant boundary
// protects. The companies table is the canonical example: every store query
// filters by organization_id, and the database enforces the same boundary
// independently through its row security policy, so the two layers have to
// agree before a row is visible.
package crm
