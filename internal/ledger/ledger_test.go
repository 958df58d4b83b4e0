package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newStarted(t *testing.T, size int) *Ledger {
	t.Helper()
	l := New(size, nil)
	l.Start()
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_SubmitReturnsCommandResult(t *testing.T) {
	l := newStarted(t, 4)
	boom := errors.New("boom")

	tests := []struct {
		name string
		fn   Command
		want error
	}{
		{name: "success", fn: func(context.Context) error { return nil }, want: nil},
		{name: "failure", fn: func(context.Context) error { return boom }, want: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := l.Submit(context.Background(), tt.name, tt.fn); !errors.Is(err, tt.want) {
				t.Errorf("Submit() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLedger_CommandsNeverOverlap(t *testing.T) {
	l := newStarted(t, 8)

	var running, maxRunning, total int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Submit(context.Background(), "inc", func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxRunning)
					if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				total++
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxRunning != 1 {
		t.Errorf("max concurrent commands = %d, want 1", maxRunning)
	}
	if total != 50 {
		t.Errorf("total = %d, want 50", total)
	}
}

func TestLedger_CancelledBeforeEnqueue(t *testing.T) {
	l := newStarted(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := l.Submit(ctx, "never", func(context.Context) error { ran = true; return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("command ran despite cancelled context")
	}
}

func TestLedger_EnqueuedCommandIsNotRetracted(t *testing.T) {
	l := newStarted(t, 1)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- l.Submit(ctx, "slow", func(cmdCtx context.Context) error {
			close(started)
			<-release
			return cmdCtx.Err()
		})
	}()

	<-started
	cancel()
	close(release)

	if err := <-result; err != nil {
		t.Errorf("Submit() error = %v, want nil after caller cancellation", err)
	}
}

func TestLedger_PanicBecomesError(t *testing.T) {
	l := newStarted(t, 1)
	err := l.Submit(context.Background(), "panic", func(context.Context) error { panic("bad") })
	if err == nil {
		t.Fatal("Submit() error = nil, want panic error")
	}
	if err := l.Submit(context.Background(), "after", func(context.Context) error { return nil }); err != nil {
		t.Errorf("ledger unusable after panic: %v", err)
	}
}

func TestLedger_Close(t *testing.T) {
	l := New(2, nil)
	l.Start()
	if err := l.Submit(context.Background(), "first", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	err := l.Submit(context.Background(), "late", func(context.Context) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
}

func TestLedger_SubmitBeforeStart(t *testing.T) {
	l := New(1, nil)

	ran := false
	for i := 0; i < 3; i++ {
		err := l.Submit(context.Background(), "early", func(context.Context) error { ran = true; return nil })
		if !errors.Is(err, ErrNotStarted) {
			t.Fatalf("Submit() #%d before Start error = %v, want ErrNotStarted", i, err)
		}
	}
	if ran {
		t.Error("command ran on a ledger that was never started")
	}

	closed := make(chan error, 1)
	go func() { closed <- l.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close() blocked on a ledger that was never started")
	}
}
