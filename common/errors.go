package common

import "errors"

// Failure classes shared by every package. Callers test with errors.Is; the
// concrete cause is wrapped around one of these.
var (
	// ErrCapacityExceeded rejects a single operation because a fixed limit
	// (layers, volumes, flags, requests) was hit. State is left unchanged.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrAllocationFailure aborts the current build; partial resources are released.
	ErrAllocationFailure = errors.New("allocation failure")
	// ErrCorruptData rejects persisted or compressed data as a whole.
	ErrCorruptData = errors.New("corrupt data")
	// ErrAlgorithmFailure is reported when a rasterization or meshing step fails.
	ErrAlgorithmFailure = errors.New("algorithm failure")
	// ErrInvalidParam rejects malformed arguments.
	ErrInvalidParam = errors.New("invalid parameter")
)
