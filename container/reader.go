package container

import (
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// decoder is shared by all readers; DecodeAll is safe for concurrent use.
var decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(maxClipSize))
})

// Reader gives random access to the clips and labels of one container.
// Open parses only the header, trailer and index; clip payloads are read on
// demand by Clip.
type Reader struct {
	path    string
	f       *os.File
	version uint16
	codec   Codec
	entries []entry
}

// Open opens the container at path and loads its index.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "container: open")
	}
	r := &Reader{path: path, f: f}
	if err := r.load(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) load() error {
	info, err := r.f.Stat()
	if err != nil {
		return errors.Wrap(err, "container: stat")
	}
	size := info.Size()
	if size < headerSize+trailerSize {
		return errors.Wrapf(ErrCorrupt, "file too small (%d bytes)", size)
	}

	var head [headerSize]byte
	if _, err := r.f.ReadAt(head[:], 0); err != nil {
		return errors.Wrap(err, "container: read header")
	}
	r.version, r.codec, err = decodeHeader(head[:])
	if err != nil {
		return err
	}

	var tail [trailerSize]byte
	if _, err := r.f.ReadAt(tail[:], size-trailerSize); err != nil {
		return errors.Wrap(err, "container: read trailer")
	}
	indexOffset, count, err := decodeTrailer(tail[:])
	if err != nil {
		return err
	}
	indexEnd := uint64(size - trailerSize)
	if indexOffset < headerSize || indexOffset > indexEnd {
		return errors.Wrapf(ErrCorrupt, "index offset %d outside file", indexOffset)
	}

	index := make([]byte, indexEnd-indexOffset)
	if _, err := r.f.ReadAt(index, int64(indexOffset)); err != nil && err != io.EOF {
		return errors.Wrap(err, "container: read index")
	}
	if uint64(count)*entryFixedSize > uint64(len(index)) {
		return errors.Wrapf(ErrCorrupt, "index of %d bytes cannot hold %d entries", len(index), count)
	}
	r.entries = make([]entry, 0, count)
	for i := uint32(0); i < count; i++ {
		e, n, err := decodeEntry(index)
		if err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
		if e.offset < headerSize || e.size > indexOffset || e.offset > indexOffset-e.size {
			return errors.Wrapf(ErrCorrupt, "entry %d payload outside data section", i)
		}
		if r.codec == CodecNone && e.rawSize != e.size {
			return errors.Wrapf(ErrCorrupt, "entry %d: stored %d bytes, want %d", i, e.size, e.rawSize)
		}
		r.entries = append(r.entries, e)
		index = index[n:]
	}
	if len(index) != 0 {
		return errors.Wrapf(ErrCorrupt, "%d trailing index bytes", len(index))
	}
	return nil
}

// Path returns the file path the reader was opened from.
func (r *Reader) Path() string {
	return r.path
}

// Codec returns the payload codec of the container.
func (r *Reader) Codec() Codec {
	return r.codec
}

// Version returns the format version recorded in the header.
func (r *Reader) Version() uint16 {
	return r.version
}

// Len returns the number of examples in the container.
func (r *Reader) Len() int {
	return len(r.entries)
}

// Labels returns a copy of the labels array.
func (r *Reader) Labels() []int64 {
	labels := make([]int64, len(r.entries))
	for i := range r.entries {
		labels[i] = r.entries[i].label
	}
	return labels
}

// Label returns labels[i].
func (r *Reader) Label(i int) (int64, error) {
	if i < 0 || i >= len(r.entries) {
		return 0, errors.Wrapf(ErrOutOfRange, "offset %d, len %d", i, len(r.entries))
	}
	return r.entries[i].label, nil
}

// Clip reads, decompresses and verifies videos[i].
func (r *Reader) Clip(i int) (*Clip, error) {
	if r.f == nil {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(r.entries) {
		return nil, errors.Wrapf(ErrOutOfRange, "offset %d, len %d", i, len(r.entries))
	}
	e := &r.entries[i]

	payload := make([]byte, e.size)
	if _, err := r.f.ReadAt(payload, int64(e.offset)); err != nil {
		return nil, errors.Wrapf(err, "container: read clip %d", i)
	}

	pixels := payload
	if r.codec == CodecZstd {
		dec, err := decoder()
		if err != nil {
			return nil, errors.Wrap(err, "container: zstd decoder")
		}
		pixels, err = dec.DecodeAll(payload, make([]byte, 0, e.rawSize))
		if err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "clip %d: %v", i, err)
		}
	}
	if uint64(len(pixels)) != e.rawSize {
		return nil, errors.Wrapf(ErrCorrupt, "clip %d: %d bytes, want %d", i, len(pixels), e.rawSize)
	}

	v := e.digest.Verifier()
	if _, err := v.Write(pixels); err != nil {
		return nil, errors.Wrapf(err, "container: verify clip %d", i)
	}
	if !v.Verified() {
		return nil, errors.Wrapf(ErrDigestMismatch, "clip %d", i)
	}

	return &Clip{
		Frames:   int(e.frames),
		Height:   int(e.height),
		Width:    int(e.width),
		Channels: int(e.channels),
		Pixels:   pixels,
	}, nil
}

// Close releases the file handle.
func (r *Reader) Close() error {
	if r.f == nil {
		return ErrClosed
	}
	err := r.f.Close()
	r.f = nil
	return err
}
