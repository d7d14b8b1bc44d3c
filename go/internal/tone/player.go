package tone

import (
	"context"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog/log"
)

const chunkSamples = 1024

// Sink receives generated audio. A device sink blocks until the chunk has
// been queued for output, which paces the worker.
type Sink interface {
	Write(chunk [][2]float64) error
}

// Player generates the countdown tone on a background goroutine. Start and
// Stop never wait on the worker, so they are safe to call from the picker's
// event loop.
type Player struct {
	sink Sink
	rate beep.SampleRate

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer creates a player writing to sink.
func NewPlayer(sink Sink) *Player {
	return &Player{sink: sink, rate: SampleRate}
}

// Start stops any current playback and plays a rising tone lasting d.
func (p *Player) Start(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.done
	if p.cancel != nil {
		p.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		// The previous worker may still be inside a sink write.
		if prev != nil {
			<-prev
		}
		p.play(ctx, d)
	}()
}

// Stop ends playback. It may be called any number of times, including
// after the tone finished on its own.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Wait blocks until the current worker, if any, has returned.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Player) play(ctx context.Context, d time.Duration) {
	streamer := Rising(p.rate, d)
	buf := make([][2]float64, chunkSamples)
	written := 0

	for ctx.Err() == nil {
		n, ok := streamer.Stream(buf)
		if n > 0 {
			if err := p.sink.Write(buf[:n]); err != nil {
				log.Error().Err(err).Msg("tone sink write failed")
				return
			}
			written += n
		}
		if !ok {
			break
		}
	}

	log.Debug().
		Dur("requested", d).
		Dur("played", p.rate.D(written)).
		Bool("stopped", ctx.Err() != nil).
		Msg("tone finished")
}
