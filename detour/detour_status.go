package detour

import (
	"fmt"

	"github.com/gorustyt/navtilecache/common"
)

type DtStatus uint32

const (
	// High level status.
	DT_FAILURE     DtStatus = 1 << 31 // Operation failed.
	DT_SUCCESS     DtStatus = 1 << 30 // Operation succeed.
	DT_IN_PROGRESS DtStatus = 1 << 29 // Operation still in progress.

	// Detail information for status.
	DT_STATUS_DETAIL_MASK DtStatus = 0x0ffffff
	DT_WRONG_MAGIC        DtStatus = 1 << 0 // Input data is not recognized.
	DT_WRONG_VERSION      DtStatus = 1 << 1 // Input data is in wrong version.
	DT_OUT_OF_MEMORY      DtStatus = 1 << 2 // Operation ran out of memory.
	DT_INVALID_PARAM      DtStatus = 1 << 3 // An input parameter was invalid.
	DT_BUFFER_TOO_SMALL   DtStatus = 1 << 4 // Result buffer for the query was too small to store all results.
	DT_OUT_OF_NODES       DtStatus = 1 << 5 // Query ran out of nodes during search.
	DT_PARTIAL_RESULT     DtStatus = 1 << 6 // Query did not reach the end location, returning best guess.
	DT_ALREADY_OCCUPIED   DtStatus = 1 << 7 // A tile has already been assigned to the given x,y coordinate
)

// Returns true of status is success.
func (status DtStatus) DtStatusSucceed() bool {
	return (status & DT_SUCCESS) != 0
}

// Returns true of status is failure.
func (status DtStatus) DtStatusFailed() bool {
	return (status & DT_FAILURE) != 0
}

// Returns true of status is in progress.
func (status DtStatus) DtStatusInProgress() bool {
	return (status & DT_IN_PROGRESS) != 0
}

// Returns true if specific detail is set.
func (status DtStatus) DtStatusDetail(detail DtStatus) bool {
	return (status & detail) != 0
}

func (status DtStatus) String() string {
	switch {
	case status.DtStatusDetail(DT_WRONG_MAGIC):
		return "wrong magic"
	case status.DtStatusDetail(DT_WRONG_VERSION):
		return "wrong version"
	case status.DtStatusDetail(DT_OUT_OF_MEMORY):
		return "out of memory"
	case status.DtStatusDetail(DT_INVALID_PARAM):
		return "invalid parameter"
	case status.DtStatusDetail(DT_BUFFER_TOO_SMALL):
		return "buffer too small"
	case status.DtStatusDetail(DT_OUT_OF_NODES):
		return "out of nodes"
	case status.DtStatusDetail(DT_PARTIAL_RESULT):
		return "partial result"
	case status.DtStatusDetail(DT_ALREADY_OCCUPIED):
		return "already occupied"
	case status.DtStatusFailed():
		return "failure"
	case status.DtStatusInProgress():
		return "in progress"
	}
	return "success"
}

// Err converts a failed status into an error wrapping the matching failure
// class from the common package. A non-failed status returns nil.
func (status DtStatus) Err() error {
	if !status.DtStatusFailed() {
		return nil
	}
	var class error
	switch {
	case status.DtStatusDetail(DT_WRONG_MAGIC | DT_WRONG_VERSION):
		class = common.ErrCorruptData
	case status.DtStatusDetail(DT_OUT_OF_MEMORY):
		class = common.ErrAllocationFailure
	case status.DtStatusDetail(DT_BUFFER_TOO_SMALL | DT_ALREADY_OCCUPIED):
		class = common.ErrCapacityExceeded
	case status.DtStatusDetail(DT_INVALID_PARAM):
		class = common.ErrInvalidParam
	default:
		class = common.ErrAlgorithmFailure
	}
	return fmt.Errorf("detour: %s: %w", status, class)
}
