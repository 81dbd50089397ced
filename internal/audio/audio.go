// Package audio plays short synthesized cues on completion and failure.
package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

// SampleRate is used for every generated cue.
const SampleRate = beep.SampleRate(44100)

// Cue names.
const (
	Success = "success"
	Error   = "error"
	Select  = "select"
)

type note struct {
	freq float64 // Hz, 0 is a rest
	dur  time.Duration
}

var cues = map[string][]note{
	Success: {{660, 110 * time.Millisecond}, {0, 25 * time.Millisecond}, {880, 170 * time.Millisecond}},
	Error:   {{220, 220 * time.Millisecond}, {0, 40 * time.Millisecond}, {165, 320 * time.Millisecond}},
	Select:  {{990, 40 * time.Millisecond}},
}

var (
	speakerOnce  sync.Once
	speakerErr   error
	speakerMutex sync.Mutex
)

func ensureSpeakerInitialized() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(SampleRate, SampleRate.N(time.Second/10))
	})
	return speakerErr
}

// Player plays cues unless it is quiet. Failures to open an audio device are
// logged once and otherwise ignored.
type Player struct {
	Quiet  bool
	Volume float64 // dB relative to full scale, base 2
	Log    func(format string, args ...any)

	warned sync.Once
}

// NewPlayer returns a Player at a modest volume.
func NewPlayer(quiet bool, logf func(string, ...any)) *Player {
	return &Player{Quiet: quiet, Volume: -2, Log: logf}
}

// Cue renders a named cue as a finite streamer.
func Cue(name string, volume float64) (beep.Streamer, error) {
	notes, ok := cues[name]
	if !ok {
		return nil, fmt.Errorf("unknown cue %q", name)
	}

	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		samples := SampleRate.N(n.dur)
		if n.freq == 0 {
			parts = append(parts, beep.Silence(samples))
			continue
		}
		tone, err := generators.SineTone(SampleRate, n.freq)
		if err != nil {
			return nil, fmt.Errorf("failed to build tone: %w", err)
		}
		parts = append(parts, beep.Take(samples, tone))
	}

	return &effects.Volume{
		Streamer: beep.Seq(parts...),
		Base:     2,
		Volume:   volume,
		Silent:   false,
	}, nil
}

// Play plays a cue synchronously (blocks until complete)
func (p *Player) Play(name string) {
	if p == nil || p.Quiet {
		return
	}

	s, err := Cue(name, p.Volume)
	if err != nil {
		p.logf("%v", err)
		return
	}
	if err := ensureSpeakerInitialized(); err != nil {
		p.warned.Do(func() { p.logf("audio unavailable: %v", err) })
		return
	}

	speakerMutex.Lock()
	defer speakerMutex.Unlock()

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	<-done
}

func (p *Player) logf(format string, args ...any) {
	if p.Log != nil {
		p.Log(format, args...)
	}
}
