package loki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

// scriptedReader returns the scripted results in order, then cancels the run.
type scriptedReader struct {
	msgs   []kafka.Message
	errs   []error
	i      int
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.i >= len(r.msgs) {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg, err := r.msgs[r.i], r.errs[r.i]
	r.i++
	return msg, err
}

func TestForwarder_Run(t *testing.T) {
	var pushes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &scriptedReader{
		msgs:   []kafka.Message{{Value: []byte(`{"type":"register"}`)}, {}, {Value: []byte(`{"type":"blocked"}`)}},
		errs:   []error{nil, errors.New("rebalance"), nil},
		cancel: cancel,
	}

	f := NewForwarder(reader, NewClient(srv.URL), nil)
	f.minBackoff = time.Millisecond
	err := f.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), pushes.Load())
}

type brokenReader struct {
	reads atomic.Int32
}

func (r *brokenReader) ReadMessage(context.Context) (kafka.Message, error) {
	r.reads.Add(1)
	return kafka.Message{}, errors.New("broker unreachable")
}

func TestForwarder_BacksOffOnReadErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	reader := &brokenReader{}
	f := NewForwarder(reader, NewClient("http://127.0.0.1:0"), nil)
	f.minBackoff = 20 * time.Millisecond
	f.maxBackoff = time.Second

	err := f.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// 20ms, 40ms, 80ms fit in the deadline.
	assert.LessOrEqual(t, reader.reads.Load(), int32(5))
	assert.GreaterOrEqual(t, reader.reads.Load(), int32(2))
}
