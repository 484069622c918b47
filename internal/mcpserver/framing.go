package mcpserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxFrameBytes bounds a single Content-Length body.
const maxFrameBytes = 16 << 20

func writeMessage(w *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Flush()
}

// readFrame reads one header block and its body. Headers may end in CRLF or
// bare LF.
func readFrame(r *bufio.Reader) ([]byte, error) {
	headers := map[string]string{}
	sawHeader := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && !sawHeader && line == "" {
				return nil, io.EOF
			}
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		s := strings.TrimRight(line, "\r\n")
		if s == "" {
			if !sawHeader {
				continue
			}
			break
		}
		sawHeader = true
		if i := strings.IndexByte(s, ':'); i >= 0 {
			key := strings.ToLower(strings.TrimSpace(s[:i]))
			headers[key] = strings.TrimSpace(s[i+1:])
		}
	}

	clStr, ok := headers["content-length"]
	if !ok {
		return nil, fmt.Errorf("missing Content-Length")
	}
	length, err := strconv.Atoi(clStr)
	if err != nil || length < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", clStr)
	}
	if length > maxFrameBytes {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", length, maxFrameBytes)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
