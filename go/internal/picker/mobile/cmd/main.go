//go:build android

package main

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/mobile/app"
	"golang.org/x/mobile/event/lifecycle"

	"github.com/mcdev12/fingerpicker/go/internal/picker/config"
	"github.com/mcdev12/fingerpicker/go/internal/picker/mobile"
	"github.com/mcdev12/fingerpicker/go/internal/tone"
)

const audioLatency = 100 * time.Millisecond

func main() {
	cfg, err := config.Load(os.Getenv("PICKER_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg.Log)

	// Keep a nil *Speaker from becoming a non-nil sink.
	var sink tone.Sink
	if spk, err := tone.OpenSpeaker(audioLatency); err != nil {
		log.Error().Err(err).Msg("audio unavailable, playing without the countdown tone")
	} else {
		defer spk.Close()
		sink = spk
	}

	session, err := mobile.New(
		clockwork.NewRealClock(),
		rand.New(rand.NewSource(time.Now().UnixNano())),
		mobile.Config{Options: cfg.PickerOptions(), Sink: sink},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start picker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := session.Run(ctx); err != nil {
			log.Error().Err(err).Msg("picker loop failed")
		}
	}()

	app.Main(func(a app.App) {
		for e := range a.Events() {
			e = a.Filter(e)
			session.Handle(e)

			if l, ok := e.(lifecycle.Event); ok && l.To == lifecycle.StageDead {
				cancel()
				<-session.Done()
				return
			}
		}
	})
}
