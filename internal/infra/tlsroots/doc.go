// Package tlsroots builds the TLS client configuration used to reach the
// registrar backend.
//
// The system pool is extended with a private CA when the backend uses an
// internal certificate authority; an optional client key pair enables
// mutual TLS.
package tlsroots
