// Package otp owns the life-cycle of email one-time codes: issuance,
// delivery, verification, expiry, attempt lockout, and resend cooldown.
//
// The authority stores one live record per email address. A record is
// consumed on first successful verification, evicted on expiry, and replaced
// wholesale when a new code is issued for the same address. Callers supply a
// continuation that runs exactly once when a code is confirmed; the authority
// does not know what the pending payload means.
package otp
