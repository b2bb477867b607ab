// Package callback verifies signed wallet callbacks and hands the trusted
// message to registered handlers.
//
// A callback envelope is Unverified until [Verifier.Verify] either returns
// its [Message] (Verified) or fails with [ErrVerificationRejected]
// (Rejected). Both outcomes are terminal.
package callback
