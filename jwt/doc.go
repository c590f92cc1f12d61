// Package jwt signs and verifies admin session tokens with a single HS256 secret
// and strict parser options. Claims are decoded into typed fields and checked
// against the permission table before a caller may trust them.
package jwt
