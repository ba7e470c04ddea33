// Package identity implements the account and credential foundation:
// principals (users), Argon2id credential verification, password history,
// email verification tokens, and plan/usage counters.
//
// Session state lives elsewhere; this package answers "who is this and may
// they log in", not "which device is this".
package identity
