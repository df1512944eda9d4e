// Package http exposes the UniSpaces application services over a JSON API.
// Handlers decode requests, delegate to application services, and translate
// sentinel errors into status codes; no business rules live here.
package http
