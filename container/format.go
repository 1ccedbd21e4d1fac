// Package container implements the .vclip container file: a single on-disk
// unit holding a fixed batch of video clips and their integer labels.
//
// A container exposes two index-aligned arrays, videos and labels. Clip
// payloads are stored back to back after a small header, optionally zstd
// compressed, and are located through an index table written at the end of
// the file. Labels live in the index, so reading the label array never
// touches clip data.
//
// Layout (little-endian):
//
//	header   magic "VCLP" | version u16 | codec u8 | reserved u8
//	payloads one record per clip (THWC uint8 pixels, raw or zstd)
//	index    count x entry
//	trailer  index offset u64 | count u32 | magic "VCLP"
//
// Each index entry records the payload offset and size, the uncompressed
// size, the label, the clip dimensions and the digest of the uncompressed
// pixels.
package container

import (
	_ "crypto/sha256" // digest.Canonical
	"encoding/binary"
	"math/bits"

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// Ext is the file extension of container files.
const Ext = ".vclip"

// Version is the container format version written by this package.
const Version uint16 = 1

const (
	headerSize     = 8
	trailerSize    = 16
	entryFixedSize = 50

	// maxClipSize bounds the uncompressed size of a single clip.
	maxClipSize = 1 << 32
)

var magic = [4]byte{'V', 'C', 'L', 'P'}

// Codec selects how clip payloads are stored.
type Codec uint8

const (
	// CodecNone stores pixels as-is.
	CodecNone Codec = 0
	// CodecZstd compresses each clip payload independently with zstd.
	CodecZstd Codec = 1
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCodec maps a codec name to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "none", "":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return 0, errors.Errorf("container: unknown codec %q", s)
	}
}

var (
	// ErrBadMagic is returned when a file does not start or end with the
	// container magic.
	ErrBadMagic = errors.New("container: bad magic")
	// ErrUnsupportedVersion is returned for files written by a newer format.
	ErrUnsupportedVersion = errors.New("container: unsupported version")
	// ErrCorrupt is returned when the index, trailer or a payload cannot be
	// decoded. A file without a readable labels/videos index is corrupt.
	ErrCorrupt = errors.New("container: corrupt file")
	// ErrDigestMismatch is returned when a clip payload fails verification.
	ErrDigestMismatch = errors.New("container: digest mismatch")
	// ErrOutOfRange is returned for offsets outside [0, Len()).
	ErrOutOfRange = errors.New("container: offset out of range")
	// ErrClosed is returned when using a closed reader or writer.
	ErrClosed = errors.New("container: closed")
)

// entry is one row of the index table.
type entry struct {
	offset   uint64
	size     uint64
	rawSize  uint64
	label    int64
	frames   uint32
	height   uint32
	width    uint32
	channels uint32
	digest   digest.Digest
}

func (e *entry) appendTo(b []byte) []byte {
	b = binary.LittleEndian.AppendUint64(b, e.offset)
	b = binary.LittleEndian.AppendUint64(b, e.size)
	b = binary.LittleEndian.AppendUint64(b, e.rawSize)
	b = binary.LittleEndian.AppendUint64(b, uint64(e.label))
	b = binary.LittleEndian.AppendUint32(b, e.frames)
	b = binary.LittleEndian.AppendUint32(b, e.height)
	b = binary.LittleEndian.AppendUint32(b, e.width)
	b = binary.LittleEndian.AppendUint32(b, e.channels)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(e.digest)))
	return append(b, e.digest...)
}

// decodeEntry parses one entry from b and returns the number of bytes used.
func decodeEntry(b []byte) (entry, int, error) {
	if len(b) < entryFixedSize {
		return entry{}, 0, errors.Wrap(ErrCorrupt, "short index entry")
	}
	e := entry{
		offset:   binary.LittleEndian.Uint64(b[0:]),
		size:     binary.LittleEndian.Uint64(b[8:]),
		rawSize:  binary.LittleEndian.Uint64(b[16:]),
		label:    int64(binary.LittleEndian.Uint64(b[24:])),
		frames:   binary.LittleEndian.Uint32(b[32:]),
		height:   binary.LittleEndian.Uint32(b[36:]),
		width:    binary.LittleEndian.Uint32(b[40:]),
		channels: binary.LittleEndian.Uint32(b[44:]),
	}
	n := int(binary.LittleEndian.Uint16(b[48:]))
	if len(b) < entryFixedSize+n {
		return entry{}, 0, errors.Wrap(ErrCorrupt, "short index digest")
	}
	d, err := digest.Parse(string(b[entryFixedSize : entryFixedSize+n]))
	if err != nil {
		return entry{}, 0, errors.Wrapf(ErrCorrupt, "index digest: %v", err)
	}
	e.digest = d
	want, ok := clipBytes(e.frames, e.height, e.width, e.channels)
	if !ok || want > maxClipSize {
		return entry{}, 0, errors.Wrapf(ErrCorrupt, "clip %dx%dx%dx%d too large",
			e.frames, e.height, e.width, e.channels)
	}
	if e.rawSize != want {
		return entry{}, 0, errors.Wrap(ErrCorrupt, "index entry size does not match clip dimensions")
	}
	return e, entryFixedSize + n, nil
}

// clipBytes multiplies the clip dimensions, reporting false on overflow.
func clipBytes(dims ...uint32) (uint64, bool) {
	n := uint64(1)
	for _, d := range dims {
		hi, lo := bits.Mul64(n, uint64(d))
		if hi != 0 {
			return 0, false
		}
		n = lo
	}
	return n, true
}

func encodeHeader(codec Codec) []byte {
	b := make([]byte, 0, headerSize)
	b = append(b, magic[:]...)
	b = binary.LittleEndian.AppendUint16(b, Version)
	return append(b, byte(codec), 0)
}

func decodeHeader(b []byte) (uint16, Codec, error) {
	if len(b) < headerSize || [4]byte(b[:4]) != magic {
		return 0, 0, ErrBadMagic
	}
	v := binary.LittleEndian.Uint16(b[4:])
	if v == 0 || v > Version {
		return 0, 0, errors.Wrapf(ErrUnsupportedVersion, "version %d", v)
	}
	c := Codec(b[6])
	if c != CodecNone && c != CodecZstd {
		return 0, 0, errors.Wrapf(ErrCorrupt, "unknown codec %d", b[6])
	}
	return v, c, nil
}

func encodeTrailer(indexOffset uint64, count uint32) []byte {
	b := make([]byte, 0, trailerSize)
	b = binary.LittleEndian.AppendUint64(b, indexOffset)
	b = binary.LittleEndian.AppendUint32(b, count)
	return append(b, magic[:]...)
}

func decodeTrailer(b []byte) (uint64, uint32, error) {
	if len(b) < trailerSize || [4]byte(b[12:16]) != magic {
		return 0, 0, errors.Wrap(ErrBadMagic, "trailer")
	}
	return binary.LittleEndian.Uint64(b[0:]), binary.LittleEndian.Uint32(b[8:]), nil
}
