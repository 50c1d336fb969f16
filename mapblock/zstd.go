package mapblock

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

// decompressZstd decompresses a single zstd frame in full. Version >= 29
// mapblocks wrap their entire post-version body in exactly one such
// frame.
func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, newErr(BadData, "zstd: %v", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, newErr(BadData, "zstd: %v", err)
	}
	return out, nil
}

// compressZstd produces a single zstd frame containing data, for the
// version >= 29 outer framing, which is always fully recomputed on
// encode (no byte-identical fast path: the original notes this frame is
// "always recompressed on write").
func compressZstd(data []byte) []byte {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// peekZstdFirstByte decompresses only enough of a zstd-framed stream to
// read its first byte, for the IsValidGenerated fast path which must
// not pay for a full decompression just to inspect the flags byte.
func peekZstdFirstByte(data []byte) (byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer dec.Close()
	var buf [1]byte
	if _, err := io.ReadFull(dec, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
