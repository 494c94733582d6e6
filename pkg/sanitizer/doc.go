// Package sanitizer normalizes customer input before validation and storage.
//
// All functions are idempotent. Invalid input is never rejected here; it is
// passed through trimmed so that validation can decide what to do with it.
package sanitizer
