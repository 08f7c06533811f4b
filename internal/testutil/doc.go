// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when collecting stream items and constructing
// operations. They are not intended for production usage.
package testutil
