// Wire framing: every frame is a 5-byte header (a 4-byte big-endian length
// prefix, then one flag byte that is 1 when the body is lz4-compressed)
// followed by that many payload bytes. The pub/sub-specific
// <topic_len><topic><payload> framing used by distributed Pub/Sub (§4.F)
// builds on top of this as its payload, not as a replacement for it.
//
// Grounded on the teacher's transport package framing (length-prefixed
// frames with an optional compression extra negotiated per endpoint).
package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v3"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
)

const maxFrameSize = 64 << 20 // 64MiB, a sanity ceiling against a corrupt length prefix

// compressLZ4 runs data through an lz4.Writer into an in-memory buffer, the
// same streaming writer the teacher wraps around its tar archiver.
func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(zr)
}

func writeFrame(w io.Writer, data []byte, compress bool) (int, error) {
	payload := data
	if compress {
		c, err := compressLZ4(data)
		if err != nil {
			return 0, cos.NewTransportError("lz4 compress", err)
		}
		if len(c) < len(data) {
			payload = c
		} else {
			// incompressible: fall back to raw, flagged below
			compress = false
		}
	}

	var header [5]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)))
	if compress {
		header[4] = 1
	}
	if _, err := w.Write(header[:]); err != nil {
		return 0, cos.NewTransportError("write frame header", err)
	}
	if len(payload) == 0 {
		return 0, nil
	}
	n, err := w.Write(payload)
	if err != nil {
		return n, cos.NewTransportError("write frame body", err)
	}
	return len(data), nil
}

func readFrame(r io.Reader, expectCompress bool) ([]byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:4])
	if n > maxFrameSize {
		return nil, cos.NewProtocolViolation(fmt.Sprintf("frame length %d exceeds ceiling", n))
	}
	compressed := header[4] == 1

	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	if !compressed {
		return buf, nil
	}
	out, err := decompressLZ4(buf)
	if err != nil {
		return nil, cos.NewProtocolViolation(fmt.Sprintf("lz4 decompress: %v", err))
	}
	return out, nil
}

// EncodeTopicFrame builds the distributed Pub/Sub wire payload described in
// §4.F: an 8-byte little-endian topic length, the topic bytes, then payload.
func EncodeTopicFrame(topic string, payload []byte) []byte {
	out := make([]byte, 8+len(topic)+len(payload))
	binary.LittleEndian.PutUint64(out[:8], uint64(len(topic)))
	copy(out[8:8+len(topic)], topic)
	copy(out[8+len(topic):], payload)
	return out
}

// DecodeTopicFrame reverses EncodeTopicFrame.
func DecodeTopicFrame(frame []byte) (topic string, payload []byte, err error) {
	if len(frame) < 8 {
		return "", nil, cos.NewProtocolViolation("topic frame shorter than length prefix")
	}
	tlen := binary.LittleEndian.Uint64(frame[:8])
	if tlen > uint64(len(frame)-8) {
		return "", nil, cos.NewProtocolViolation("topic frame length prefix exceeds frame size")
	}
	topic = string(frame[8 : 8+tlen])
	payload = frame[8+tlen:]
	return topic, payload, nil
}
