// Package http provides the HTTP handlers and middleware for the campus
// booking API.
//
// The router exposes the following endpoints:
//   - POST /register: self-service account creation. Registered accounts
//     always receive the student role.
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     The token is also surfaced via the `X-Session-Token` header and a
//     `session_token` cookie.
//   - POST /sessions/refresh: rotates the presented token and extends its
//     validity window.
//   - DELETE /sessions/current, DELETE /sessions/{token}: revoke sessions.
//   - GET/POST /bookings, GET /bookings/{id}, PATCH /bookings/{id}: the
//     booking ledger. PATCH carries {"status": ...} and runs the booking
//     status machine; approval and rejection require an administrator.
//   - GET/POST /resources, GET/PUT/DELETE /resources/{id}: the resource
//     catalog. Listing is available to any authenticated principal while
//     mutations require admin privileges.
//   - GET/POST /users, GET/PUT/DELETE /users/{id}, PUT /users/{id}/password:
//     account management.
//   - GET /metrics: Prometheus metrics.
//
// Request/response DTOs live alongside their respective handlers so tests
// and documentation share the same ground truth.
package http
