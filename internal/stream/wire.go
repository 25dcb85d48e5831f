// Package stream implements the TCP streaming plane: the server that
// accepts listener connections and broadcasts audio, and the client that
// discovers, connects to, and plays back from a server.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame kind discriminators. The distilled protocol disambiguated control
// JSON from PCM frames by sniffing for a newline byte, which is fragile
// when PCM data happens to contain 0x0a; a leading discriminator byte
// removes the ambiguity entirely.
const (
	kindControl byte = 0x00
	kindPCM     byte = 0x01
)

// writeFrame writes one discriminated, length-prefixed frame to w.
func writeFrame(w io.Writer, kind byte, payload []byte) error {
	header := make([]byte, 5)
	header[0] = kind
	binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// readFrame reads one discriminated, length-prefixed frame from r.
func readFrame(r io.Reader) (kind byte, payload []byte, err error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	kind = header[0]
	length := binary.LittleEndian.Uint32(header[1:])
	payload = make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return kind, payload, nil
}
