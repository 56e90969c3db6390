// Package session keeps portal sessions in Redis.
//
// Keys are <prefix>:s:<session id> for the record and <prefix>:u:<user id>
// for the set of a user's session ids, which lets [Store.RevokeUser] end
// every session of one user in a single script.
//
// A record is a version byte, four length-prefixed strings (user id, name,
// email, role) and the created/expires Unix timestamps. Unknown versions are
// rejected on read.
//
// The package knows nothing about tokens or roles; the Portal maps claims to
// sessions and roles to homes.
package session
