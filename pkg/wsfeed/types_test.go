package wsfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  []Tick
	}{
		{
			name:  "single tick",
			frame: `{"time":"2024-03-01T09:00:00Z","code":"7203","price":2450.5}`,
			want:  []Tick{{Time: "2024-03-01T09:00:00Z", Code: "7203", Price: "2450.5"}},
		},
		{
			name:  "envelope",
			frame: `{"topic":"ticks","data":[{"time":1709283600,"code":"A","price":"1"},{"time":"x","code":"B","price":null}]}`,
			want: []Tick{
				{Time: "1709283600", Code: "A", Price: "1"},
				{Time: "x", Code: "B", Price: ""},
			},
		},
		{
			name:  "array",
			frame: ` [{"time":"t","code":"A","price":-1.25e2}] `,
			want:  []Tick{{Time: "t", Code: "A", Price: "-1.25e2"}},
		},
		{name: "ack", frame: `{"op":"subscribe","success":true}`},
		{name: "blank", frame: "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFrame([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFrameRejects(t *testing.T) {
	for _, frame := range []string{`not json`, `[{"code":true}]`, `{"price":{}}`} {
		_, err := DecodeFrame([]byte(frame))
		assert.Error(t, err, frame)
	}
}
