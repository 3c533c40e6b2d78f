// Package clock provides a tiny time abstraction.
//
// Code with time-dependent behavior (OTP expiry, resend cooldowns, token
// lifetimes) should depend on the Clocker interface instead of calling
// time.Now() directly, so tests can substitute a fixed or stepping clock.
package clock
