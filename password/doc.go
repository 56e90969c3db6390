// Package password holds the new-account password policy and the Argon2id
// hasher used by the development backend.
//
// # Policy
//
// [Evaluate] reports per-rule [Strength] for a candidate. A new-account
// password satisfies the policy when it has at least [MinPolicyLength]
// characters with an upper-case letter, a lower-case letter and a digit.
// Recovery passwords only need six characters; that rule lives with the
// recovery flow.
//
// # Output format
//
// Hashes are PHC strings with unpadded base64 salt and key:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Verify runs with the parameters stored in the hash. [Argon2.NeedsUpgrade]
// reports when a stored hash should be replaced.
//
// # What this package must NOT do
//
//   - Store passwords or hashes.
//   - Import any other goPortal package.
package password
