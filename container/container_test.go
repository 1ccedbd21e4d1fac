package container

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClip builds a clip whose pixel at (t, y, x, c) is seed+t+y+x+c.
func testClip(frames, height, width, channels int, seed uint8) *Clip {
	clip := NewClip(frames, height, width, channels)
	i := 0
	for t := 0; t < frames; t++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				for c := 0; c < channels; c++ {
					clip.Pixels[i] = seed + uint8(t+y+x+c)
					i++
				}
			}
		}
	}
	return clip
}

func writeTestContainer(t *testing.T, path string, codec Codec, labels []int64) []*Clip {
	t.Helper()
	w, err := Create(path, WithCodec(codec))
	require.NoError(t, err)
	clips := make([]*Clip, len(labels))
	for i, label := range labels {
		clips[i] = testClip(3, 4, 5, 3, uint8(i*10))
		require.NoError(t, w.Append(clips[i], label))
	}
	require.Equal(t, len(labels), w.Len())
	require.NoError(t, w.Close())
	return clips
}

func TestWriteAndRead(t *testing.T) {
	t.Parallel()

	for _, codec := range []Codec{CodecNone, CodecZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "a"+Ext)
			want := writeTestContainer(t, path, codec, []int64{5, 9, 7})

			r, err := Open(path)
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, codec, r.Codec())
			assert.Equal(t, Version, r.Version())
			assert.Equal(t, path, r.Path())
			assert.Equal(t, 3, r.Len())
			assert.Equal(t, []int64{5, 9, 7}, r.Labels())

			for i := range want {
				got, err := r.Clip(i)
				require.NoError(t, err)
				assert.Equal(t, want[i].Frames, got.Frames)
				assert.Equal(t, want[i].Height, got.Height)
				assert.Equal(t, want[i].Width, got.Width)
				assert.Equal(t, want[i].Channels, got.Channels)
				assert.Equal(t, want[i].Pixels, got.Pixels)
			}

			label, err := r.Label(1)
			require.NoError(t, err)
			assert.Equal(t, int64(9), label)
		})
	}
}

func TestEmptyContainer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty"+Ext)
	writeTestContainer(t, path, CodecZstd, nil)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Labels())
}

func TestClipOutOfRange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a"+Ext)
	writeTestContainer(t, path, CodecNone, []int64{1, 2})

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Clip(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = r.Clip(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = r.Label(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDigestMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a"+Ext)
	writeTestContainer(t, path, CodecNone, []int64{1})

	// Flip the first pixel of the only payload, which starts right after the header.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[headerSize] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Clip(0)
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestOpenRejectsBadFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good"+Ext)
	writeTestContainer(t, good, CodecZstd, []int64{1, 2})
	data, err := os.ReadFile(good)
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, err := Open(filepath.Join(dir, "nope"+Ext))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("too small", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(dir, "small"+Ext)
		require.NoError(t, os.WriteFile(p, []byte("VCLP"), 0o644))
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("bad header magic", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(dir, "magic"+Ext)
		bad := append([]byte(nil), data...)
		copy(bad, "HDF5")
		require.NoError(t, os.WriteFile(p, bad, 0o644))
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("newer version", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(dir, "version"+Ext)
		bad := append([]byte(nil), data...)
		bad[4] = 0xff
		require.NoError(t, os.WriteFile(p, bad, 0o644))
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("truncated index", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(dir, "truncated"+Ext)
		require.NoError(t, os.WriteFile(p, data[:len(data)-trailerSize-3], 0o644))
		_, err := Open(p)
		assert.ErrorIs(t, err, ErrBadMagic)
	})
}

// patched copies data and overwrites it at off with the little-endian bytes
// of v.
func patched(data []byte, off int, v any) []byte {
	out := append([]byte(nil), data...)
	switch v := v.(type) {
	case uint32:
		binary.LittleEndian.PutUint32(out[off:], v)
	case uint64:
		binary.LittleEndian.PutUint64(out[off:], v)
	}
	return out
}

func TestOpenRejectsCorruptIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good"+Ext)
	writeTestContainer(t, good, CodecZstd, []int64{1})
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	indexOffset := int(binary.LittleEndian.Uint64(data[len(data)-trailerSize:]))

	cases := map[string][]byte{
		// Trailer count far beyond what the index bytes can hold.
		"huge count": patched(data, len(data)-8, uint32(0xFFFFFFFF)),
		// offset+size wraps around in uint64.
		"overflowing size": patched(data, indexOffset+8, ^uint64(0)-3),
		"size past index":  patched(data, indexOffset+8, uint64(indexOffset)),
		// 2^16 per dimension multiplies to 2^64, which wraps to 0.
		"overflowing dimensions": patched(patched(patched(patched(patched(data,
			indexOffset+16, uint64(0)),
			indexOffset+32, uint32(1<<16)),
			indexOffset+36, uint32(1<<16)),
			indexOffset+40, uint32(1<<16)),
			indexOffset+44, uint32(1<<16)),
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := filepath.Join(dir, name+Ext)
			require.NoError(t, os.WriteFile(p, bad, 0o644))
			_, err := Open(p)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestOpenRejectsRawSizeMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "raw"+Ext)
	writeTestContainer(t, path, CodecNone, []int64{1})
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	indexOffset := int(binary.LittleEndian.Uint64(data[len(data)-trailerSize:]))
	size := binary.LittleEndian.Uint64(data[indexOffset+8:])

	require.NoError(t, os.WriteFile(path, patched(data, indexOffset+8, size-1), 0o644))
	_, err = Open(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestClipBytes(t *testing.T) {
	t.Parallel()

	n, ok := clipBytes(4, 8, 8, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(768), n)

	_, ok = clipBytes(1<<16, 1<<16, 1<<16, 1<<16)
	assert.False(t, ok)
}

func TestWriterRejectsInvalidClip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a"+Ext)
	w, err := Create(path)
	require.NoError(t, err)

	bad := NewClip(2, 2, 2, 3)
	bad.Pixels = bad.Pixels[:5]
	assert.Error(t, w.Append(bad, 0))
	assert.Error(t, w.Append(nil, 0))

	w.Abort()
	assert.ErrorIs(t, w.Append(testClip(1, 1, 1, 1, 0), 0), ErrClosed)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file should be removed")
}

func TestParseCodec(t *testing.T) {
	t.Parallel()

	c, err := ParseCodec("zstd")
	require.NoError(t, err)
	assert.Equal(t, CodecZstd, c)
	c, err = ParseCodec("none")
	require.NoError(t, err)
	assert.Equal(t, CodecNone, c)
	_, err = ParseCodec("gzip")
	assert.Error(t, err)
}
