package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/api"
	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/db"
	"github.com/Tk21111/sketchroom/internal/discovery"
	"github.com/Tk21111/sketchroom/internal/logx"
	"github.com/Tk21111/sketchroom/middleware"
	"github.com/Tk21111/sketchroom/session"
	"github.com/Tk21111/sketchroom/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sketchroom:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("sketchroom", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "", "YAML config file")
	addr := fs.String("addr", "", "listen address")
	dbPath := fs.String("db", "", "SQLite presence log (empty disables it)")
	origin := fs.String("allowed-origin", "", "CORS origin of the web front end")
	mdnsOn := fs.Bool("mdns", false, "advertise the relay over mDNS")
	burnRoom := fs.String("burn-room", "", "flood this room with synthetic strokes (load testing)")
	burnRate := fs.Int("burn-strokes", 5, "synthetic strokes per second for --burn-room")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	settings, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if fs.Changed("addr") {
		settings.Addr = *addr
	}
	if fs.Changed("db") {
		settings.DBPath = *dbPath
	}
	if fs.Changed("allowed-origin") {
		settings.AllowedOrigin = *origin
	}
	if fs.Changed("mdns") {
		settings.MDNS = *mdnsOn
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := logx.Init(settings.Env); err != nil {
		return err
	}
	defer logx.L.Sync()
	log := logx.L

	if settings.DBPath != "" {
		w, err := db.NewWriter(settings.DBPath)
		if err != nil {
			return err
		}
		db.W = w
		defer w.Close()
	}

	hub := ws.NewHub(ws.Options{
		Store:           session.NewStore(),
		SendBuffer:      settings.SendBuffer,
		MaxMessageBytes: settings.MaxMessageBytes,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	api.Routes(mux, hub)

	srv := &http.Server{
		Addr:              settings.Addr,
		Handler:           middleware.Chain(mux, middleware.Logging, middleware.CORS(settings.AllowedOrigin)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", settings.Addr)
	if err != nil {
		return err
	}

	if settings.MDNS {
		_, portStr, _ := net.SplitHostPort(ln.Addr().String())
		port, _ := strconv.Atoi(portStr)
		server, err := discovery.Advertise(settings.MDNSName, port)
		if err != nil {
			log.Warn("mdns disabled", zap.Error(err))
		} else {
			defer server.Shutdown()
			log.Info("mdns advertised", zap.String("service", discovery.ServiceType), zap.Int("port", port))
		}
	}

	if *burnRoom != "" {
		go burn(ctx, hub, *burnRoom, *burnRate, settings.Client)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("relay running", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func burn(ctx context.Context, hub *ws.Hub, room string, perSecond int, canvas config.ClientSettings) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := ws.BurnRoom(hub, room, perSecond, 20, canvas.Width, canvas.Height)
			logx.L.Debug("burn", zap.String("roomId", room), zap.Int("events", n))
		}
	}
}
