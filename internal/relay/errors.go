package relay

import "errors"

// Error classes used across component boundaries.
var (
	// ErrFetch marks navigation, render or parse failures.
	ErrFetch = errors.New("fetch failed")
	// ErrStorage marks seen-store read or write failures.
	ErrStorage = errors.New("storage failed")
	// ErrDispatch marks webhook transport failures and non-success responses.
	ErrDispatch = errors.New("dispatch failed")
)
