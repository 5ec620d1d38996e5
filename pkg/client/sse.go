package client

import (
	"bufio"
	"io"
	"strings"
)

// readSSEStream parses a text/event-stream body and invokes handle once per
// event with the event name and joined data payload. It returns when the
// stream ends, with the transport error if one occurred.
func readSSEStream(r io.Reader, handle func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if event != "" || data.Len() > 0 {
				handle(event, data.String())
			}
			event = ""
			data.Reset()
			continue
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, ":"):
			// comment line, ignore
		}
	}
	return scanner.Err()
}
