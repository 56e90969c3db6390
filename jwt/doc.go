// Package jwt issues and verifies the signed tokens that point at a portal
// session record. The token carries the session id, the user id as subject
// and the role as a hint; it is never trusted without the record.
package jwt
