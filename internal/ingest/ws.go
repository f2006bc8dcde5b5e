package ingest

import (
	"context"
	"io"
	"time"

	"candleservice/pkg/wsfeed"

	"go.uber.org/zap"
)

// WSSource records ticks from a WebSocket feed for a bounded capture window
// and hands them to the index builder. The build still completes before any
// query is served.
type WSSource struct {
	URL     string
	Capture time.Duration // zero means until the server closes the stream
	MaxRows int           // zero means unlimited
	Options wsfeed.Options
	Logger  *zap.Logger
}

func (s *WSSource) Name() string {
	return "ws:" + s.URL
}

func (s *WSSource) Open(ctx context.Context) (RowReader, error) {
	client := wsfeed.NewClient(s.URL, s.Options, s.Logger)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	if s.Capture > 0 {
		client.SetDeadline(time.Now().Add(s.Capture))
	}
	// unblock a pending read when the caller gives up
	stop := context.AfterFunc(ctx, func() { client.Close() })

	return &wsReader{ctx: ctx, client: client, stop: stop, maxRows: s.MaxRows}, nil
}

type wsReader struct {
	ctx     context.Context
	client  *wsfeed.Client
	stop    func() bool
	maxRows int
	rows    int
	pending []wsfeed.Tick
}

func (r *wsReader) Next() (RawRow, error) {
	if r.maxRows > 0 && r.rows >= r.maxRows {
		return RawRow{}, io.EOF
	}
	for len(r.pending) == 0 {
		ticks, err := r.client.ReadTicks(r.ctx)
		if err != nil {
			return RawRow{}, err
		}
		r.pending = ticks
	}

	t := r.pending[0]
	r.pending = r.pending[1:]
	r.rows++
	return RawRow{Time: string(t.Time), Code: string(t.Code), Price: string(t.Price)}, nil
}

func (r *wsReader) Close() error {
	r.stop()
	return r.client.Close()
}
