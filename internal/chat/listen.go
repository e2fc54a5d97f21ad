package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/soil-advisor/internal/speech"
)

// ErrAlreadyListening is returned by StartListening when a feed is active.
var ErrAlreadyListening = errors.New("chat: already listening")

type listenSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartListening starts src and copies every transcript fragment into the
// pending input, replacing what was there. Listening ends when StopListening
// is called, ctx is cancelled, or the feed closes.
func (p *Pipeline) StartListening(ctx context.Context, src speech.Source) error {
	p.mu.Lock()
	if p.listen != nil {
		p.mu.Unlock()
		return ErrAlreadyListening
	}
	listenCtx, cancel := context.WithCancel(ctx)
	sess := &listenSession{cancel: cancel, done: make(chan struct{})}
	p.listen = sess
	p.mu.Unlock()

	fragments, err := src.Start(listenCtx)
	if err != nil {
		cancel()
		close(sess.done)
		p.update(func() {
			if p.listen == sess {
				p.listen = nil
			}
		})
		return fmt.Errorf("start speech capture: %w", err)
	}
	p.update(func() {})

	go func() {
		defer close(sess.done)
		defer cancel()
		for text := range fragments {
			p.SetPending(text)
		}
		p.update(func() {
			if p.listen == sess {
				p.listen = nil
			}
		})
	}()
	return nil
}

// StopListening ends speech capture and waits for the feed to drain. The last
// transcript stays in the pending input.
func (p *Pipeline) StopListening() {
	p.mu.Lock()
	sess := p.listen
	p.mu.Unlock()
	if sess == nil {
		return
	}

	sess.cancel()
	<-sess.done
}

// Listening reports whether a speech feed is active.
func (p *Pipeline) Listening() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listen != nil
}
