package spool

import "errors"

// Sentinel errors for spool operations
var (
	// ErrSpoolClosed indicates the spool has been closed
	ErrSpoolClosed = errors.New("spool closed")

	// ErrSpoolFinalized indicates Reader() has already been called
	ErrSpoolFinalized = errors.New("spool finalized")
)
