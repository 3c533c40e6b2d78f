// Package hash defines the password hashing contract and its bcrypt
// implementation.
package hash
