// Command test is a headless participant: it joins a room, draws random
// strokes through the same interaction loop a UI would drive, and can save
// the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/drawing"
	"github.com/Tk21111/sketchroom/export"
	"github.com/Tk21111/sketchroom/interact"
	"github.com/Tk21111/sketchroom/internal/discovery"
	"github.com/Tk21111/sketchroom/internal/logx"
	"github.com/Tk21111/sketchroom/protocol"
	"github.com/Tk21111/sketchroom/tool"
	"github.com/Tk21111/sketchroom/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath  = pflag.StringP("config", "c", "", "YAML config file")
		wsURL    = pflag.String("url", "", "relay /ws endpoint (empty: find one over mDNS)")
		room     = pflag.String("room", "test", "room to join")
		name     = pflag.String("name", "", "display name (empty: guest name)")
		codec    = pflag.String("codec", "", "json or cbor")
		rate     = pflag.Int("rate", 5, "strokes per second")
		segments = pflag.Int("segments", 20, "drag positions per stroke")
		duration = pflag.Duration("duration", 10*time.Second, "how long to draw")
		text     = pflag.String("text", "", "type this with the Text tool before drawing")
		out      = pflag.String("export", "", "save the canvas here when done (.png or .pdf)")
	)
	pflag.Parse()

	settings, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	cs := settings.Client
	if pflag.CommandLine.Changed("codec") {
		cs.Codec = *codec
	}
	if err := cs.Validate(); err != nil {
		return err
	}

	if err := logx.Init(settings.Env); err != nil {
		return err
	}
	defer logx.L.Sync()
	log := logx.L

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	url := *wsURL
	if url == "" {
		relays, err := discovery.Browse(ctx, 2*time.Second)
		if err != nil {
			return fmt.Errorf("discover relay: %w", err)
		}
		if len(relays) == 0 {
			return errors.New("no relay found on the local network; pass --url")
		}
		url = relays[0].URL()
		log.Info("found relay", zap.String("instance", relays[0].Instance), zap.String("url", url))
	}

	conn, err := ws.Dial(ctx, url, ws.DialOptions{Room: *room, Name: *name, Codec: cs.Codec})
	if err != nil {
		return err
	}
	defer conn.Close()

	q := protocol.NewQueue()
	s, err := protocol.NewSession(conn, protocol.Options{
		Width:       cs.Width,
		Height:      cs.Height,
		Logger:      log.Named("session"),
		Queue:       q,
		SyncTimeout: cs.SyncTimeout,
		OnPresence: func(p protocol.Presence) {
			log.Info("presence", zap.String("op", p.Operation), zap.String("name", p.Name))
		},
		OnOffline: func(off bool) {
			log.Warn("connectivity", zap.Bool("offline", off))
		},
	})
	if err != nil {
		return err
	}
	loop := interact.New(s)

	go q.Run(ctx)
	go func() {
		if err := conn.Attach(ctx, q, s); err != nil && ctx.Err() == nil {
			log.Warn("relay connection lost", zap.Error(err))
		}
	}()

	if err := waitSynchronized(ctx, q, s); err != nil {
		return err
	}
	log.Info("synchronized", zap.String("id", s.ID()), zap.String("name", s.Name()))

	if *text != "" {
		if err := q.Call(ctx, func() { typeText(ctx, loop, *text) }); err != nil {
			return err
		}
	}

	draw(ctx, q, loop, *rate, *segments, *duration, cs)

	if *out != "" {
		var exportErr error
		if err := q.Call(context.Background(), func() {
			exportErr = export.ToFile(*out, s.Background(), s.Drawable())
		}); err != nil {
			return err
		}
		if exportErr != nil {
			return exportErr
		}
		log.Info("exported", zap.String("path", *out))
	}
	return nil
}

func waitSynchronized(ctx context.Context, q *protocol.Queue, s *protocol.Session) error {
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		var (
			st         protocol.State
			canvas, bg bool
		)
		if err := q.Call(ctx, func() {
			st = s.State()
			canvas, bg = s.Awaiting()
		}); err != nil {
			return err
		}
		if st == protocol.Synchronized {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("still %s, awaiting canvas=%t background=%t: %w", st, canvas, bg, ctx.Err())
		case <-tick.C:
		}
	}
}

func typeText(ctx context.Context, loop *interact.Loop, text string) {
	t := loop.Session().Tool()
	prev := t.Kind()
	if err := t.Switch(tool.Text); err != nil {
		return
	}
	defer t.Switch(prev)

	// write in the color the room shows for us
	if c := loop.Session().Color(); c != "" {
		orig := t.Color().String()
		if t.SetColor(c) == nil {
			defer t.SetColor(orig)
		}
	}

	_ = loop.Press(ctx, drawing.Point{X: 20, Y: float64(t.Size()) + 10})
	_ = loop.Type(ctx, text)
	loop.Release()
}

func draw(ctx context.Context, q *protocol.Queue, loop *interact.Loop, rate, segments int, d time.Duration, cs config.ClientSettings) {
	if rate <= 0 {
		return
	}
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	end := time.After(d)

	for {
		select {
		case <-ctx.Done():
			return
		case <-end:
			return
		case <-ticker.C:
			q.Post(func() {
				pick := ws.RandomTool(rng)
				t := loop.Session().Tool()
				_ = t.Switch(pick.Kind())
				_ = t.SetSize(pick.Size())
				_ = t.SetColor(pick.Color().String())

				pts := ws.RandomGesture(rng, cs.Width, cs.Height, segments+1)
				_ = loop.Press(ctx, pts[0])
				_ = loop.Drag(ctx, pts[1:]...)
				loop.Release()
			})
		}
	}
}
