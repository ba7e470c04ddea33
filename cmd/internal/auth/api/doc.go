// Package authapi wires the HTTP auth endpoints to the identity and session
// services: register, login, refresh, logout, email verification, password
// change, and principal introspection.
//
// Tokens travel exclusively in HttpOnly cookies. The access cookie is sent
// site-wide; the refresh cookie is scoped to the refresh path so the
// long-lived credential is absent from every other request.
package authapi
