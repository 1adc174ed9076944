package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ssargent/bootdesc/pkg/history"
	"github.com/ssargent/bootdesc/pkg/region"
	"github.com/ssargent/bootdesc/pkg/updater"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		loadLabel string
	}{
		{
			name:      "header crc mismatch",
			err:       &region.LoadError{Kind: region.ErrCRCMismatch, Slot: region.HeaderSlot, Found: 1, Expected: 2},
			status:    http.StatusUnprocessableEntity,
			loadLabel: "crc_mismatch",
		},
		{
			name:      "requested slot out of range",
			err:       &region.LoadError{Kind: region.ErrSlotIndexOutOfRange, Slot: 4, Found: 4, Expected: 2},
			status:    http.StatusBadRequest,
			loadLabel: "slot_index_out_of_range",
		},
		{
			name:      "stored active slot out of range",
			err:       &region.LoadError{Kind: region.ErrSlotIndexOutOfRange, Slot: region.HeaderSlot, Found: 4, Expected: 2},
			status:    http.StatusUnprocessableEntity,
			loadLabel: "slot_index_out_of_range",
		},
		{
			name:      "buffer too short",
			err:       &region.LoadError{Kind: region.ErrBufferTooShort, Slot: 1},
			status:    http.StatusUnprocessableEntity,
			loadLabel: "buffer_too_short",
		},
		{
			name:      "verify failure wraps region error",
			err:       fmt.Errorf("%w: %w", updater.ErrVerifyFailed, &region.LoadError{Kind: region.ErrCRCMismatch, Slot: 0}),
			status:    http.StatusInternalServerError,
			loadLabel: "verify_failed",
		},
		{
			name:      "invalid snapshot wraps region error",
			err:       fmt.Errorf("%w abc: %w", updater.ErrInvalidSnapshot, &region.LoadError{Kind: region.ErrSignatureMismatch, Slot: region.HeaderSlot}),
			status:    http.StatusUnprocessableEntity,
			loadLabel: "invalid_snapshot",
		},
		{
			name:      "snapshot size differs from region",
			err:       fmt.Errorf("%w: snapshot is 120 bytes, region is 512", updater.ErrSnapshotSizeMismatch),
			status:    http.StatusUnprocessableEntity,
			loadLabel: "snapshot_size_mismatch",
		},
		{
			name:      "manifest region too large",
			err:       fmt.Errorf("%w: %w", updater.ErrRegionTooLarge, &region.LoadError{Kind: region.ErrRegionTooLarge, Slot: region.HeaderSlot, Found: 0x0800_0078, Expected: 0x200}),
			status:    http.StatusUnprocessableEntity,
			loadLabel: "region_too_large",
		},
		{
			name:      "snapshot not found",
			err:       history.ErrSnapshotNotFound,
			status:    http.StatusNotFound,
			loadLabel: "snapshot_not_found",
		},
		{
			name:      "history disabled",
			err:       updater.ErrHistoryDisabled,
			status:    http.StatusNotImplemented,
			loadLabel: "history_disabled",
		},
		{
			name:      "io failure",
			err:       errors.New("read flash.bin: input/output error"),
			status:    http.StatusInternalServerError,
			loadLabel: "io_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
			assert.Equal(t, tt.loadLabel, loadResult(tt.err))
		})
	}

	assert.Equal(t, "valid", loadResult(nil))
}
