// Package auth is the authentication and authorization core for a
// multi-tenant label-design service: password hashing, JWT access tokens with
// opaque refresh tokens, registration and login flows, per-request session
// validation, and the admin-only user management surface.
//
// Session model:
//   - Access tokens are short-lived HS256 JWTs carrying the user id, email,
//     and role. Validation always re-reads the user record, so a suspension
//     takes effect on the next request rather than at token expiry.
//   - Refresh tokens are opaque 256-bit values stored as SHA-256 digests.
//     The refresh endpoint rotates: it mints a fresh pair and revokes the
//     spent token. Ban and delete revoke every live token for the target.
//
// Admin surface:
//   - AdminService carries the privileged mutations behind two guards: the
//     actor may never target their own account for role changes, bans, or
//     deletion, and those statements only match non-admin rows. Every
//     successful mutation appends one entry to the append-only audit log
//     with the actor, action tag, target, details, and source IP.
//
// HTTP delivery:
//   - RouteAuthenticator plugs into go-router as middleware. Browser clients
//     get an HttpOnly cookie pair (path-scoped so the refresh token only
//     travels to the refresh endpoint); API clients can opt into body-token
//     delivery via Config.
package auth
