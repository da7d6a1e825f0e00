// Package auth provides the server side of classroom authentication: JWT
// issuance and verification, the session cookie transport, the Fiber guard
// wiring and Bun backed user storage.
//
// Credentials:
//   - TokenServiceImpl signs HS256 credentials carrying the user id, email
//     and role. Verification never tolerates expiry and reports failures as
//     ErrMalformedCredential, ErrExpiredCredential or ErrInvalidSignature.
//   - MultiTokenValidator keeps accepting credentials signed with a retired
//     secret while the new one rolls out.
//
// Sessions:
//   - SessionTransport sets the HTTP-only session cookie. Inbound requests
//     are resolved cookie first, then the Authorization bearer header.
//   - RouteAuthenticator builds jwtware guards in mandatory or optional mode,
//     optionally restricted to roles, and consults the RevocationStore so a
//     logged out credential stops working before it expires.
//
// Accounts:
//   - Users start with no role and pick student or instructor once through
//     SelectRole. UserStateMachine blocks and unblocks accounts; blocked
//     users fail login and profile lookups with "Account blocked".
//   - ActivitySink receives login, logout, registration, role and status
//     events. Sinks run best effort (errors are logged).
package auth
