package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"finboard/internal/amqp"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload(context.Context) error {
	r.calls.Add(1)
	return r.err
}

type fakeConsumer struct {
	msgs []*amqp.DatasetChangedMessage
	errs chan error
}

func (c *fakeConsumer) ConsumeDatasetChanged(ctx context.Context, handler amqp.Handler) error {
	for _, m := range c.msgs {
		c.errs <- handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandleDatasetChanged(t *testing.T) {
	boom := errors.New("backend down")
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"reload succeeds", nil, false},
		{"reload fails so message is requeued", boom, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &countingReloader{err: tt.err}
			w := NewRefreshWorker(r, nil, 0, nil)
			err := w.HandleDatasetChanged(context.Background(), amqp.NewDatasetChangedMessage("test", 1))
			if (err != nil) != tt.wantErr {
				t.Errorf("HandleDatasetChanged() error = %v, wantErr %v", err, tt.wantErr)
			}
			if r.calls.Load() != 1 {
				t.Errorf("Reload called %d times, want 1", r.calls.Load())
			}
		})
	}
}

func TestRunConsumesMessages(t *testing.T) {
	r := &countingReloader{}
	c := &fakeConsumer{
		msgs: []*amqp.DatasetChangedMessage{amqp.NewDatasetChangedMessage("a", 1), amqp.NewDatasetChangedMessage("b", 2)},
		errs: make(chan error, 2),
	}
	w := NewRefreshWorker(r, c, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 2; i++ {
		if err := <-c.errs; err != nil {
			t.Errorf("handler error = %v", err)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if r.calls.Load() != 2 {
		t.Errorf("Reload called %d times, want 2", r.calls.Load())
	}
}

func TestRunPeriodicRefresh(t *testing.T) {
	r := &countingReloader{err: errors.New("transient")}
	w := NewRefreshWorker(r, nil, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, func() bool { return r.calls.Load() >= 2 })
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRunIdle(t *testing.T) {
	r := &countingReloader{}
	w := NewRefreshWorker(r, nil, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if r.calls.Load() != 0 {
		t.Errorf("idle worker reloaded %d times", r.calls.Load())
	}
}
