// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing agents, sessions and leads, and to
// stand in for the external collaborators (voice provider, CRM store,
// relay). These helpers are intentionally minimal and are not intended for
// production usage.
package testutil
