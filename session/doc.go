// Package session is the application's auth state container.
//
// All auth mutations go through one Store with subscribe/notify semantics;
// nothing else writes the persisted fields directly.
package session
