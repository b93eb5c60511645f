// Package audio plays the alert chime.
package audio

import (
	"bytes"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/borgmon/meetalert/pkg/logging"
)

// Global audio context singleton
var (
	globalAudioCtx     *oto.Context
	globalAudioCtxOnce sync.Once
	globalAudioCtxErr  error
)

func audioContext() (*oto.Context, error) {
	globalAudioCtxOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			globalAudioCtxErr = err
			return
		}
		// Wait for the hardware audio devices to be ready
		<-ready
		globalAudioCtx = ctx
	})
	return globalAudioCtx, globalAudioCtxErr
}

// Player loops a sound until stopped.
type Player struct {
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
	log      logging.Logger
}

// PlayChime starts looping the alert chime with a pause between rounds. It
// returns nil when no audio device is available.
func PlayChime(log logging.Logger) *Player {
	if log == nil {
		log = logging.NewNop()
	}
	ctx, err := audioContext()
	if err != nil {
		log.Warn("audio: context unavailable", logging.Err(err))
		return nil
	}

	p := &Player{stopChan: make(chan struct{}), log: log}
	go p.playLoop(ctx, Chime())
	return p
}

func (p *Player) playLoop(ctx *oto.Context, pcm []byte) {
	for {
		player := ctx.NewPlayer(bytes.NewReader(pcm))
		player.Play()

		for player.IsPlaying() {
			select {
			case <-p.stopChan:
				player.Pause()
				player.Close()
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
		if err := player.Close(); err != nil {
			p.log.Warn("audio: failed to close player", logging.Err(err))
		}

		select {
		case <-p.stopChan:
			return
		case <-time.After(chimePause):
		}
	}
}

// Stop ends playback. Safe on a nil Player and safe to call twice.
func (p *Player) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.stopChan)
	}
}
