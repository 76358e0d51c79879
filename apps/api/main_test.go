package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

type syncMail struct{}

func (syncMail) SendMessages(...*core.EmailMessage) {}

type backgroundMail struct {
	wg      sync.WaitGroup
	release chan struct{}
	sent    int
	mu      sync.Mutex
}

func newBackgroundMail() *backgroundMail {
	return &backgroundMail{release: make(chan struct{})}
}

func (m *backgroundMail) SendMessages(messages ...*core.EmailMessage) {
	m.wg.Add(len(messages))
	for range messages {
		go func() {
			defer m.wg.Done()
			<-m.release
			m.mu.Lock()
			m.sent++
			m.mu.Unlock()
		}()
	}
}

func (m *backgroundMail) Wait() { m.wg.Wait() }

func Test_waitForEmails(t *testing.T) {
	t.Run("synchronous service", func(t *testing.T) {
		if err := waitForEmails(context.Background(), syncMail{}); err != nil {
			t.Errorf("waitForEmails() error = %v", err)
		}
	})

	t.Run("pending emails are sent", func(t *testing.T) {
		svc := newBackgroundMail()
		svc.SendMessages(&core.EmailMessage{}, &core.EmailMessage{})
		close(svc.release)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := waitForEmails(ctx, svc); err != nil {
			t.Fatalf("waitForEmails() error = %v", err)
		}
		if svc.sent != 2 {
			t.Errorf("sent = %d, want 2", svc.sent)
		}
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		svc := newBackgroundMail()
		svc.SendMessages(&core.EmailMessage{})
		defer close(svc.release)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := waitForEmails(ctx, svc); errors.Cause(err) != context.DeadlineExceeded {
			t.Errorf("waitForEmails() error = %v, want %v", err, context.DeadlineExceeded)
		}
	})
}
