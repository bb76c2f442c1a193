package zim

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

const (
	compressionDefault = 0
	compressionNone    = 1
	compressionXZ      = 4
	compressionZstd    = 5

	extendedCluster = 0x10
)

var zstdDecoder, _ = zstd.NewReader(nil)

// cluster is a decompressed cluster with its blob offset table.
type cluster struct {
	data    []byte
	offsets []uint64
}

func (c *cluster) size() int { return len(c.data) }

func (c *cluster) blobCount() int { return len(c.offsets) - 1 }

func (c *cluster) blob(i uint32) ([]byte, error) {
	if int(i) >= c.blobCount() {
		return nil, fmt.Errorf("%w: blob %d out of %d", ErrCorrupt, i, c.blobCount())
	}
	return c.data[c.offsets[i]:c.offsets[i+1]], nil
}

func decodeCluster(raw []byte) (*cluster, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty cluster", ErrCorrupt)
	}
	info := raw[0]
	body := raw[1:]

	var data []byte
	switch comp := info & 0x0f; comp {
	case compressionDefault, compressionNone:
		data = body
	case compressionXZ:
		r, err := xz.ReaderConfig{SingleStream: true}.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: xz: %w", ErrCorrupt, err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("%w: xz: %w", ErrCorrupt, err)
		}
	case compressionZstd:
		var err error
		if data, err = zstdDecoder.DecodeAll(body, nil); err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
	default:
		return nil, fmt.Errorf("%w: type %d", ErrUnsupportedCompression, comp)
	}

	width := 4
	if info&extendedCluster != 0 {
		width = 8
	}
	offsets, err := parseOffsets(data, width)
	if err != nil {
		return nil, err
	}
	return &cluster{data: data, offsets: offsets}, nil
}

// parseOffsets reads the blob offset table. The first offset is also the
// table's own length, so it fixes the blob count.
func parseOffsets(data []byte, width int) ([]uint64, error) {
	read := func(i int) uint64 {
		if width == 8 {
			return binary.LittleEndian.Uint64(data[i*8:])
		}
		return uint64(binary.LittleEndian.Uint32(data[i*4:]))
	}
	if len(data) < width {
		return nil, fmt.Errorf("%w: cluster too short", ErrCorrupt)
	}
	first := read(0)
	if first < uint64(width) || first%uint64(width) != 0 || first > uint64(len(data)) {
		return nil, fmt.Errorf("%w: bad offset table", ErrCorrupt)
	}

	count := int(first) / width
	offsets := make([]uint64, count)
	prev := first
	for i := range offsets {
		off := read(i)
		if off < prev || off > uint64(len(data)) {
			return nil, fmt.Errorf("%w: blob offset %d out of range", ErrCorrupt, i)
		}
		offsets[i] = off
		prev = off
	}
	return offsets, nil
}
