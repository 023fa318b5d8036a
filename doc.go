// Package authclient implements the client half of a remote authentication
// service: durable token storage, local claim decoding, remote validation,
// and a session manager that gates access to protected routes.
//
// Session lifecycle:
//   - SessionManager owns the in-memory session and is the only writer of the
//     TokenStore. It runs the startup validation sequence once, then exposes
//     login, register, change-password, logout, and refresh flows.
//   - Navigation is returned as data (Redirect intents), never performed by
//     the manager. The HTTP layer decides when and how to execute them.
//
// Token handling:
//   - DecodeToken performs an unverified claim parse. The client holds no
//     signing key, so the decoded expiry is a fast-path check only; CheckAuth
//     against the remote service remains the source of truth.
//
// Route gating:
//   - middleware/guard renders a pending view while the session is loading,
//     and redirects unauthenticated requests to the login route while
//     preserving the originally requested path.
package authclient
