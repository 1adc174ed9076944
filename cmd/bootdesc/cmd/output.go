package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ssargent/bootdesc/pkg/api"
	"github.com/ssargent/bootdesc/pkg/codec"
	"github.com/ssargent/bootdesc/pkg/history"
	"github.com/ssargent/bootdesc/pkg/region"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputRegion displays a validated region
func outputRegion(w io.Writer, d *region.Descriptors, format string) error {
	if format == formatJSON {
		return outputJSON(w, api.NewRegionView(d))
	}
	return outputRegionTable(w, d)
}

func imageMode(f codec.ImageFlags) string {
	if f.ExecuteInPlace() {
		return "xip"
	}
	return "ram"
}

func outputRegionTable(w io.Writer, d *region.Descriptors) error {
	h := d.Header()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Descriptor version:\t%s\n", h.DescriptorVersion)
	fmt.Fprintf(tw, "Slots:\t%d\n", h.NumAppSlots)
	fmt.Fprintf(tw, "Active slot:\t%d\n", h.ActiveAppSlot)
	fmt.Fprintf(tw, "Descriptor array:\t0x%08X\n", h.AppDescriptorBaseAddress)
	fmt.Fprintf(tw, "Header CRC:\t0x%08X\n", h.HeaderCRC)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tACTIVE\tAPP\tSEC\tMODE\tSTORED\tSIZE\tCRC AT\tEXEC\tSKIP CRC\tDESC CRC")
	for slot, desc := range d.All() {
		active := ""
		if slot == h.ActiveAppSlot {
			active = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t0x%08X\t0x%X\t0x%08X\t0x%08X\t%t\t0x%08X\n",
			slot, active, desc.AppVersion, desc.SecurityVersion, imageMode(desc.Flags),
			desc.StoredAddress, desc.ImageSizeBytes, desc.StoredCRCAddress,
			desc.ExecutionAddress, desc.Flags.SkipImageCRCCheck, desc.DescriptorCRC)
	}
	return tw.Flush()
}

// outputSnapshots displays snapshot metadata, newest first
func outputSnapshots(w io.Writer, snaps []history.Snapshot, format string) error {
	if format == formatJSON {
		views := make([]api.SnapshotView, 0, len(snaps))
		for _, s := range snaps {
			views = append(views, api.NewSnapshotView(s))
		}
		return outputJSON(w, views)
	}

	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tACTIVE\tBYTES\tREASON")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.CreatedAt.Format(time.RFC3339), s.ActiveSlot, len(s.Region), s.Reason)
	}
	return tw.Flush()
}
