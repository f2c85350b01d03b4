// Package locate abstracts position providers behind a one-shot/watch API.
//
// Sources never retry on their own; a failed reading is returned to the
// caller, which decides whether the flow can continue without a position.
package locate
