package domain

import "errors"

var (
	// ErrInvalidRequest is returned when a run is started with an empty query or a
	// non-positive result count.
	ErrInvalidRequest = errors.New("invalid run request")
	// ErrFetch aborts a run: a ranked result set could not be obtained.
	ErrFetch = errors.New("fetch search results")
	// ErrSentStoreLoad aborts a run: the sent-record store could not be read.
	ErrSentStoreLoad = errors.New("load sent records")
	// ErrDispatch marks a failed per-article dispatch. The article stays eligible.
	ErrDispatch = errors.New("dispatch article")
	// ErrMalformedRecord marks a search record that was dropped during normalization.
	ErrMalformedRecord = errors.New("malformed record")
)
