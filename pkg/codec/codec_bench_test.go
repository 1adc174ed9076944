//go:build bench
// +build bench

package codec

import (
	"bytes"
	"testing"
)

func BenchmarkChecksum(b *testing.B) {
	benchmarks := []struct {
		name string
		data []byte
	}{
		{name: "descriptor", data: bytes.Repeat([]byte{0x5A}, AppImageDescriptorSize-crcFieldSize)},
		{name: "1KiB", data: bytes.Repeat([]byte{0x5A}, 1024)},
		{name: "64KiB", data: bytes.Repeat([]byte{0x5A}, 64*1024)},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.SetBytes(int64(len(bm.data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Checksum(bm.data)
			}
		})
	}
}

func BenchmarkHeader_Decode(b *testing.B) {
	encoded := NewHeader(2, 0, 0x20).Encode()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, err := DecodeHeader(encoded)
		if err != nil {
			b.Fatal(err)
		}
		if !h.IsCRCValid() {
			b.Fatal("invalid crc")
		}
	}
}

func BenchmarkAppImageDescriptor_EncodeSeal(b *testing.B) {
	d := NewExecuteInPlaceImage(ImageParams{Slot: 0, StoredAddress: 0x1000, ImageSizeBytes: 0x8000})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.AppVersion = uint32(i)
		d.Seal()
		_ = d.Encode()
	}
}
