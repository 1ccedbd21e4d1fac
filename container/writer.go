package container

import (
	"bufio"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// Writer builds a container file. Clips are appended in order; Close writes
// the index and trailer and moves the file into place. Until Close returns
// successfully nothing exists at the destination path.
type Writer struct {
	path  string
	f     *os.File
	bw    *bufio.Writer
	codec Codec
	level zstd.EncoderLevel
	enc   *zstd.Encoder

	offset  uint64
	entries []entry
	closed  bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithCodec sets the payload codec. The default is CodecZstd.
func WithCodec(c Codec) Option {
	return func(w *Writer) {
		w.codec = c
	}
}

// WithEncoderLevel sets the zstd level used with CodecZstd.
func WithEncoderLevel(l zstd.EncoderLevel) Option {
	return func(w *Writer) {
		w.level = l
	}
}

// Create starts a new container that will be written to path.
func Create(path string, opts ...Option) (*Writer, error) {
	w := &Writer{
		path:  path,
		codec: CodecZstd,
		level: zstd.SpeedDefault,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.codec != CodecNone && w.codec != CodecZstd {
		return nil, errors.Errorf("container: unknown codec %d", w.codec)
	}
	if w.codec == CodecZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(w.level), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrap(err, "container: create zstd encoder")
		}
		w.enc = enc
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, errors.Wrapf(err, "container: create %s", path)
	}
	w.f = f
	w.bw = bufio.NewWriterSize(f, 1<<20)

	header := encodeHeader(w.codec)
	if _, err := w.bw.Write(header); err != nil {
		w.abort()
		return nil, errors.Wrap(err, "container: write header")
	}
	w.offset = uint64(len(header))
	return w, nil
}

// Len returns the number of clips appended so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// Append adds a clip and its label as the next example.
func (w *Writer) Append(clip *Clip, label int64) error {
	if w.closed {
		return ErrClosed
	}
	if clip == nil {
		return errors.New("container: nil clip")
	}
	if err := clip.Validate(); err != nil {
		return err
	}
	if uint64(len(clip.Pixels)) > maxClipSize {
		return errors.Errorf("container: clip of %d bytes exceeds %d", len(clip.Pixels), uint64(maxClipSize))
	}
	if len(w.entries) == math.MaxUint32 {
		return errors.New("container: too many clips")
	}

	payload := clip.Pixels
	if w.codec == CodecZstd {
		payload = w.enc.EncodeAll(clip.Pixels, make([]byte, 0, len(clip.Pixels)/2))
	}
	if _, err := w.bw.Write(payload); err != nil {
		return errors.Wrap(err, "container: write clip")
	}

	w.entries = append(w.entries, entry{
		offset:   w.offset,
		size:     uint64(len(payload)),
		rawSize:  uint64(len(clip.Pixels)),
		label:    label,
		frames:   uint32(clip.Frames),
		height:   uint32(clip.Height),
		width:    uint32(clip.Width),
		channels: uint32(clip.Channels),
		digest:   digest.FromBytes(clip.Pixels),
	})
	w.offset += uint64(len(payload))
	return nil
}

// Close writes the index and trailer, syncs the file and renames it to its
// final path. On failure the partial file is removed.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	if w.enc != nil {
		defer w.enc.Close()
	}

	indexOffset := w.offset
	index := make([]byte, 0, len(w.entries)*(entryFixedSize+72))
	for i := range w.entries {
		index = w.entries[i].appendTo(index)
	}
	if _, err := w.bw.Write(index); err != nil {
		w.abort()
		return errors.Wrap(err, "container: write index")
	}
	if _, err := w.bw.Write(encodeTrailer(indexOffset, uint32(len(w.entries)))); err != nil {
		w.abort()
		return errors.Wrap(err, "container: write trailer")
	}
	if err := w.bw.Flush(); err != nil {
		w.abort()
		return errors.Wrap(err, "container: flush")
	}
	if err := w.f.Sync(); err != nil {
		w.abort()
		return errors.Wrap(err, "container: sync")
	}
	tmp := w.f.Name()
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "container: close")
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "container: rename into %s", w.path)
	}
	return nil
}

// Abort discards everything written so far.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	if w.enc != nil {
		w.enc.Close()
	}
	w.abort()
}

func (w *Writer) abort() {
	tmp := w.f.Name()
	_ = w.f.Close()
	_ = os.Remove(tmp)
}
