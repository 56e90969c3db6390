// Package devbackend is an in-memory identity backend speaking the REST
// contract of package backend. It exists for local runs and end-to-end
// tests; nothing survives a restart.
//
// Users are seeded with argon2id hashes. Recovery codes are six digits, held
// only as SHA-256 digests, expire after Options.CodeTTL and stop verifying
// after Options.MaxCodeAttempts wrong guesses. Issued codes are logged at
// info level since there is no mail transport.
package devbackend
