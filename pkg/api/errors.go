package api

import (
	"errors"
	"net/http"

	"github.com/ssargent/bootdesc/pkg/history"
	"github.com/ssargent/bootdesc/pkg/region"
	"github.com/ssargent/bootdesc/pkg/updater"
)

type errorMapping struct {
	err    error
	label  string
	status int
}

// Checked in order; wrapper errors come before the region kinds they wrap.
var errorMappings = []errorMapping{
	{err: updater.ErrVerifyFailed, label: "verify_failed", status: http.StatusInternalServerError},
	{err: updater.ErrInvalidSnapshot, label: "invalid_snapshot", status: http.StatusUnprocessableEntity},
	{err: updater.ErrSnapshotSizeMismatch, label: "snapshot_size_mismatch", status: http.StatusUnprocessableEntity},
	{err: updater.ErrRegionTooLarge, label: "region_too_large", status: http.StatusUnprocessableEntity},
	{err: updater.ErrHistoryDisabled, label: "history_disabled", status: http.StatusNotImplemented},
	{err: history.ErrSnapshotNotFound, label: "snapshot_not_found", status: http.StatusNotFound},
	{err: history.ErrInvalidID, label: "invalid_snapshot_id", status: http.StatusBadRequest},
	{err: region.ErrBufferTooShort, label: "buffer_too_short", status: http.StatusUnprocessableEntity},
	{err: region.ErrSignatureMismatch, label: "signature_mismatch", status: http.StatusUnprocessableEntity},
	{err: region.ErrSizeFieldMismatch, label: "size_field_mismatch", status: http.StatusUnprocessableEntity},
	{err: region.ErrVersionMismatch, label: "version_mismatch", status: http.StatusUnprocessableEntity},
	{err: region.ErrCRCMismatch, label: "crc_mismatch", status: http.StatusUnprocessableEntity},
	{err: region.ErrInvalidSlotCount, label: "invalid_slot_count", status: http.StatusUnprocessableEntity},
	{err: region.ErrSlotIdentityMismatch, label: "slot_identity_mismatch", status: http.StatusUnprocessableEntity},
	{err: region.ErrBaseAddressOutOfRange, label: "base_address_out_of_range", status: http.StatusUnprocessableEntity},
	{err: region.ErrRegionTooLarge, label: "region_too_large", status: http.StatusUnprocessableEntity},
	{err: region.ErrSlotIndexOutOfRange, label: "slot_index_out_of_range", status: http.StatusBadRequest},
}

// statusFor maps an error to an HTTP status. A slot index out of range is
// the caller's fault unless the stored header itself names a bad slot.
func statusFor(err error) int {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.err == region.ErrSlotIndexOutOfRange {
			var le *region.LoadError
			if errors.As(err, &le) && le.Slot == region.HeaderSlot {
				return http.StatusUnprocessableEntity
			}
		}
		return m.status
	}
	return http.StatusInternalServerError
}

// loadResult labels the outcome of a region load for metrics
func loadResult(err error) string {
	if err == nil {
		return "valid"
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.label
		}
	}
	return "io_error"
}
