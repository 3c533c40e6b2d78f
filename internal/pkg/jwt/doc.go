// Package jwt provides session token generation and verification using
// symmetric HS512 signing.
package jwt
