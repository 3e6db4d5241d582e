// Package snapshot exports and imports a point-in-time slot topology for
// offline inspection (e.g. diffing two snapshots after a resharding, or
// attaching one to a bug report). This is not part of the routing hot
// path. Compression picks among ZSTD, LZ4 Frame, and LZF, the same
// codecs an RDB payload might arrive compressed with. Here the caller
// picks the codec instead, since there is no wire
// negotiation to follow.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
	lzf "github.com/zhuyie/golzf"
)

// SlotAssignment is one contiguous slot range and its owning nodes,
// primary first.
type SlotAssignment struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Primary  string   `json:"primary"`
	Replicas []string `json:"replicas,omitempty"`
}

// Topology is the exportable snapshot payload.
type Topology struct {
	Slots []SlotAssignment `json:"slots"`
}

// Codec compresses and decompresses an exported topology payload.
type Codec interface {
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// Export serializes t as JSON and compresses it with codec.
func Export(t Topology, codec Codec) ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal topology: %w", err)
	}
	out, err := codec.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s compress: %w", codec.Name(), err)
	}
	return out, nil
}

// Import decompresses data with codec and decodes it back into a Topology.
func Import(data []byte, codec Codec) (Topology, error) {
	raw, err := codec.Decompress(data)
	if err != nil {
		return Topology{}, fmt.Errorf("snapshot: %s decompress: %w", codec.Name(), err)
	}
	var t Topology
	if err := json.Unmarshal(raw, &t); err != nil {
		return Topology{}, fmt.Errorf("snapshot: unmarshal topology: %w", err)
	}
	return t, nil
}

// ZSTD compresses with github.com/klauspost/compress/zstd.
type ZSTD struct{}

func (ZSTD) Name() string { return "zstd" }

func (ZSTD) Compress(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}

func (ZSTD) Decompress(src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(src, nil)
}

// LZ4 compresses with the LZ4 frame format via github.com/pierrec/lz4/v4.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (LZ4) Decompress(src []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	return io.ReadAll(r)
}

// LZF compresses with github.com/zhuyie/golzf.
type LZF struct{}

func (LZF) Name() string { return "lzf" }

func (LZF) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, len(src))
	n, err := lzf.Compress(src, dst)
	if err != nil {
		// Incompressible input: golzf requires a destination buffer
		// strictly smaller than the source to signal a win. Store it
		// uncompressed; the decompressor recognizes this form by the
		// leading mode byte.
		return encodeStored(src), nil
	}
	return encodeCompressed(dst[:n], len(src)), nil
}

func (LZF) Decompress(src []byte) ([]byte, error) {
	stored, payload, origLen := decodeHeader(src)
	if stored {
		return payload, nil
	}
	dst := make([]byte, origLen)
	n, err := lzf.Decompress(payload, dst)
	if err != nil {
		return nil, err
	}
	if n != origLen {
		return nil, fmt.Errorf("lzf: decompressed length mismatch: expected %d, got %d", origLen, n)
	}
	return dst, nil
}

// encodeStored/encodeCompressed/decodeHeader frame an LZF payload with a
// 1-byte mode flag and a 4-byte big-endian original length, since golzf
// itself carries no header and Decompress requires the caller to already
// know the uncompressed size.
func encodeStored(src []byte) []byte {
	out := make([]byte, 5+len(src))
	out[0] = 0
	putUint32(out[1:5], uint32(len(src)))
	copy(out[5:], src)
	return out
}

func encodeCompressed(compressed []byte, origLen int) []byte {
	out := make([]byte, 5+len(compressed))
	out[0] = 1
	putUint32(out[1:5], uint32(origLen))
	copy(out[5:], compressed)
	return out
}

func decodeHeader(src []byte) (stored bool, payload []byte, origLen int) {
	if len(src) < 5 {
		return true, nil, 0
	}
	origLen = int(getUint32(src[1:5]))
	payload = src[5:]
	return src[0] == 0, payload, origLen
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
