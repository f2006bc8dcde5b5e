package wsfeed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tick is a price observation as sent by the feed. Values are kept as text;
// parsing and validation belong to the ingestion layer.
type Tick struct {
	Time  Text `json:"time"`  // timestamp string or epoch number
	Code  Text `json:"code"`  // instrument code
	Price Text `json:"price"` // price as string or number
}

// Message is the envelope of a feed frame. A frame carries either a batch in
// Data or a single tick inline. Frames with neither (subscription acks,
// heartbeats) are ignored.
type Message struct {
	Topic string `json:"topic"`
	Data  []Tick `json:"data"`
	Tick
}

// Text decodes a JSON string or number into its textual form.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*t = Text(n.String())
	default:
		return fmt.Errorf("wsfeed: expected string or number, got %s", b)
	}
	return nil
}

// DecodeFrame extracts the ticks carried by one frame: a JSON array of ticks,
// an envelope with a data array, or a single tick object.
func DecodeFrame(frame []byte) ([]Tick, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, nil
	}

	if frame[0] == '[' {
		var ticks []Tick
		if err := json.Unmarshal(frame, &ticks); err != nil {
			return nil, fmt.Errorf("decode tick array: %w", err)
		}
		return ticks, nil
	}

	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if len(msg.Data) > 0 {
		return msg.Data, nil
	}
	if msg.Code != "" {
		return []Tick{msg.Tick}, nil
	}
	return nil, nil
}
