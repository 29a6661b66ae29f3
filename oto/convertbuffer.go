package oto

import (
	"encoding/binary"
	"math"
)

// floatBufferTo32BitLE appends the samples of buff to dst as 32-bit
// little-endian floats, clipping them to [-1, 1].
func floatBufferTo32BitLE(buff []float32, dst []byte) []byte {
	for _, v := range buff {
		v = min(max(v, -1), 1)
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
