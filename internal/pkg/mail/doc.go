// Package mail defines the contract for sending email and its delivery
// implementations.
//
// Handlers and use cases work with the Mail interface and Message payload;
// delivery runs over an HTTP transactional provider with an SMTP fallback.
// Ordinary delivery failures come back as errors so callers can decide
// whether they are fatal; for verification codes they are not.
package mail
