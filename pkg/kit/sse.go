package kit

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteEvent writes one server-sent event with a JSON payload.
func WriteEvent(w io.Writer, event string, id uint64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", event, id, b)
	return err
}
