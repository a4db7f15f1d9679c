package slideshow

import (
	"context"
	"time"

	"github.com/NetoRibeiro/photodisplay/internal/library"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

// Command is a directional or exit input, the keyboard/remote equivalent of
// ArrowRight / ArrowLeft / Enter.
type Command int

const (
	CmdNext Command = iota
	CmdPrev
	CmdEnter
)

// Frame is one rendered slideshow position.
type Frame struct {
	Photo photo.Record
	Index int
	Total int
}

// Player runs the auto-advancing loop: a repeating timer fires Next at the
// configured interval, inputs move the cursor immediately, and Enter exits to
// the detail view when the detail-only preference is set.
type Player struct {
	ctrl     *Controller
	store    *library.Store
	settings *library.SettingsStore
	frames   chan Frame
	input    chan Command

	// interval is read through a func so the loop always sees the latest
	// saved preference.
	interval func() time.Duration
}

func NewPlayer(store *library.Store, settings *library.SettingsStore) *Player {
	return &Player{
		ctrl:     NewController(),
		store:    store,
		settings: settings,
		frames:   make(chan Frame, 1),
		input:    make(chan Command, 4),
		interval: settings.Interval,
	}
}

// Frames delivers the latest frame; a slow consumer only ever misses
// intermediate positions, never the newest one.
func (p *Player) Frames() <-chan Frame {
	return p.frames
}

// Input queues a command for the running loop.
func (p *Player) Input(cmd Command) {
	select {
	case p.input <- cmd:
	default:
	}
}

// Run cycles until the context ends or Enter exits to detail. The returned
// record is non-nil only for the Enter exit. The advance timer is re-created
// whenever the ready-set size or the configured interval changes, and torn
// down entirely on return.
func (p *Player) Run(ctx context.Context) (*photo.Record, error) {
	changes := make(chan struct{}, 1)
	ping := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
	unsubStore := p.store.Subscribe(func(library.Snapshot) { ping() })
	defer unsubStore()
	unsubSettings := p.settings.Subscribe(ping)
	defer unsubSettings()

	p.ctrl.SetPhotos(p.store.Ready())
	interval := p.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.emit()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-ticker.C:
			p.ctrl.Next()
			p.emit()

		case cmd := <-p.input:
			switch cmd {
			case CmdNext:
				p.ctrl.Next()
				p.emit()
			case CmdPrev:
				p.ctrl.Prev()
				p.emit()
			case CmdEnter:
				if !p.settings.DetailOnly() {
					continue
				}
				if cur, ok := p.ctrl.Current(); ok {
					return &cur, nil
				}
			}

		case <-changes:
			prevLen := p.ctrl.Len()
			p.ctrl.SetPhotos(p.store.Ready())
			next := p.interval()
			if next != interval || p.ctrl.Len() != prevLen {
				ticker.Stop()
				interval = next
				ticker = time.NewTicker(interval)
			}
			p.emit()
		}
	}
}

func (p *Player) emit() {
	cur, ok := p.ctrl.Current()
	if !ok {
		return
	}
	frame := Frame{Photo: cur, Index: p.ctrl.Index(), Total: p.ctrl.Len()}
	for {
		select {
		case p.frames <- frame:
			return
		default:
			select {
			case <-p.frames: // drop the stale frame
			default:
			}
		}
	}
}
