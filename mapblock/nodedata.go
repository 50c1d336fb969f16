package mapblock

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

// NodeCount is the number of nodes in a mapblock (16^3).
const NodeCount = 4096

// NodeData holds the three dense per-node arrays that make up the
// voxel payload of a mapblock.
type NodeData struct {
	Nodes  [NodeCount]uint16
	Param1 [NodeCount]uint8
	Param2 [NodeCount]uint8
}

// decodeNodeData reads the plain (uncompressed) wire form: 4096
// big-endian u16 node IDs, then 4096 param1 bytes, then 4096 param2
// bytes.
func decodeNodeData(r *reader) (*NodeData, error) {
	nd := &NodeData{}
	for i := 0; i < NodeCount; i++ {
		v, err := r.readU16()
		if err != nil {
			return nil, err
		}
		nd.Nodes[i] = v
	}
	p1, err := r.tryReadN(NodeCount)
	if err != nil {
		return nil, err
	}
	copy(nd.Param1[:], p1)
	p2, err := r.tryReadN(NodeCount)
	if err != nil {
		return nil, err
	}
	copy(nd.Param2[:], p2)
	return nd, nil
}

// encode writes the plain wire form described in decodeNodeData.
func (nd *NodeData) encode(w *writer) {
	for _, v := range nd.Nodes {
		w.writeU16(v)
	}
	w.writeBytes(nd.Param1[:])
	w.writeBytes(nd.Param2[:])
}

// decodeNodeDataCompressed reads a zlib frame (the v<=28 on-disk form),
// then parses the plain payload from the decompressed bytes. It fails
// with BadData if compressed data remains after the plain payload has
// been fully consumed, mirroring the original's trailing-bytes check.
// It returns the decoded value together with the exact compressed bytes
// consumed, so an unmodified NodeData can be re-emitted byte-for-byte.
func decodeNodeDataCompressed(r *reader) (*NodeData, []byte, error) {
	start := r.pos
	// br must stay a *bytes.Reader (it implements io.ByteReader) so
	// flate reads from it directly instead of wrapping it in a
	// read-ahead bufio.Reader; only then does br.Len() below reflect
	// exactly the bytes the zlib frame occupies.
	br := bytes.NewReader(r.buf[r.pos:])
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, nil, newErr(BadData, "zlib: %v", err)
	}
	defer zr.Close()

	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, nil, newErr(BadData, "zlib: %v", err)
	}

	inner := newReader(plain)
	nd, err := decodeNodeData(inner)
	if err != nil {
		return nil, nil, err
	}
	if inner.remaining() > 0 {
		return nil, nil, newErr(BadData, "trailing bytes after NodeData payload")
	}

	consumed := len(r.buf[r.pos:]) - br.Len()
	raw := r.buf[start : start+consumed]
	r.pos = start + consumed
	return nd, raw, nil
}

// compressNodeData zlib-compresses the plain wire form of nd at default
// compression, matching the original's flate2::Compression::default().
func compressNodeData(nd *NodeData) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	w := newWriter()
	nd.encode(w)
	if _, err := zw.Write(w.Bytes()); err != nil {
		panic(errors.Wrap(err, "mapblock: zlib compress NodeData"))
	}
	if err := zw.Close(); err != nil {
		panic(errors.Wrap(err, "mapblock: zlib compress NodeData"))
	}
	return buf.Bytes()
}
