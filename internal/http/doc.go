// Package http exposes the service over a JSON HTTP API.
//
// Handlers translate requests into application service calls and map the
// service error taxonomy onto HTTP statuses. Authentication is carried by an
// opaque session token in the Authorization header or a session cookie;
// RequireSession resolves it to a principal stored in the request context.
package http
