package datasets_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/clipset/container"
)

const (
	testFrames   = 4
	testSize     = 8
	testChannels = 3
)

// marker identifies an example inside its clip pixels.
func marker(containerIdx, example int) uint8 {
	return uint8(containerIdx*16 + example)
}

// testClip builds a clip where channel 0 holds the spatial position y*8+x,
// channel 1 holds the example marker and channel 2 holds the frame number.
func testClip(m uint8) *container.Clip {
	clip := container.NewClip(testFrames, testSize, testSize, testChannels)
	i := 0
	for t := 0; t < testFrames; t++ {
		for y := 0; y < testSize; y++ {
			for x := 0; x < testSize; x++ {
				clip.Pixels[i] = uint8(y*testSize + x)
				clip.Pixels[i+1] = m
				clip.Pixels[i+2] = uint8(t)
				i += testChannels
			}
		}
	}
	return clip
}

// writeCorpus writes one container per label slice into dir, named
// c000.vclip, c001.vclip, ...
func writeCorpus(t *testing.T, dir string, labels [][]int64) []string {
	t.Helper()
	paths := make([]string, len(labels))
	for ci, ls := range labels {
		paths[ci] = filepath.Join(dir, fmt.Sprintf("c%03d%s", ci, container.Ext))
		writeContainer(t, paths[ci], ci, ls)
	}
	return paths
}

func writeContainer(t *testing.T, path string, containerIdx int, labels []int64) {
	t.Helper()
	w, err := container.Create(path)
	require.NoError(t, err)
	for ei, l := range labels {
		require.NoError(t, w.Append(testClip(marker(containerIdx, ei)), l))
	}
	require.NoError(t, w.Close())
}
