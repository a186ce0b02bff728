package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ExportHumanReadable writes events to w in an indented, line-oriented
// format suitable for audit review. Payloads that fail to re-indent are
// written raw rather than dropped.
func ExportHumanReadable(events []Event, w io.Writer) error {
	for i, evt := range events {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "[%s] %s\n", evt.Timestamp.Format("2006-01-02T15:04:05Z07:00"), evt.Type); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  turn: %d\n", evt.Turn); err != nil {
			return err
		}
		if evt.Seq != 0 {
			if _, err := fmt.Fprintf(w, "  seq: %d\n", evt.Seq); err != nil {
				return err
			}
		}
		if evt.EntityType != "" {
			if _, err := fmt.Fprintf(w, "  entity: %s/%s\n", evt.EntityType, evt.EntityID); err != nil {
				return err
			}
		}
		if evt.ConsciousnessImpact != 0 {
			if _, err := fmt.Fprintf(w, "  impact: %.3f\n", evt.ConsciousnessImpact); err != nil {
				return err
			}
		}
		if len(evt.PayloadJSON) > 0 {
			if _, err := fmt.Fprintf(w, "  payload: %s\n", indentPayload(evt.PayloadJSON)); err != nil {
				return err
			}
		}
	}
	return nil
}

func indentPayload(payload []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "  ", "  "); err != nil {
		return string(payload)
	}
	return buf.String()
}
