// Command syncwave-engine runs the fan-out engine: it captures from one
// audio source and routes it to configured local sinks, optionally
// broadcasting to network clients.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/syncwave/syncwave/internal/config"
	"github.com/syncwave/syncwave/internal/discovery"
	"github.com/syncwave/syncwave/internal/engine"
	"github.com/syncwave/syncwave/internal/stream"
)

func main() {
	var (
		captureIndex = pflag.IntP("capture", "c", -1, "Capture device index. -1 uses the config file or host default.")
		sinkFlag     = pflag.StringArrayP("sink", "s", nil, "Sink as index:gain:delay_ms, e.g. 5:80:0. May be repeated.")
		serverPort   = pflag.IntP("port", "p", 5555, "TCP port for the stream server.")
		displayName  = pflag.StringP("name", "n", "SyncWave", "Display name advertised via mDNS.")
		noNetwork    = pflag.BoolP("no-network", "N", false, "Disable the stream server and mDNS advertisement.")
		useLoopback  = pflag.Bool("use-loopback", false, "Capture system audio output (loopback) instead of a microphone input.")
		debugAudio   = pflag.Bool("debug-audio", false, "Log per-block engine trace.")
		help         = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: syncwave-engine [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	logger := log.Default()
	if *debugAudio {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "err", err)
	}

	capture := *captureIndex
	if capture < 0 {
		capture = cfg.CaptureIndex
	}

	loopback := *useLoopback
	if !pflag.Lookup("use-loopback").Changed {
		loopback = cfg.UseLoopback
	}

	port := *serverPort
	if !pflag.Lookup("port").Changed && cfg.ServerPort > 0 {
		port = cfg.ServerPort
	}

	name := *displayName
	if !pflag.Lookup("name").Changed && cfg.DisplayName != "" {
		name = cfg.DisplayName
	}

	sinks := parseSinks(*sinkFlag, cfg.Sinks, logger)
	if len(sinks) == 0 {
		logger.Fatal("no sinks configured; pass --sink index:gain:delay_ms or set syncwave.yaml")
	}

	var broadcaster engine.Broadcaster
	var srv *stream.Server
	var adv *discovery.Advertiser

	if !*noNetwork {
		srv = stream.NewServer(logger)
		if err := srv.Listen(port); err != nil {
			logger.Fatal("listen", "err", err)
		}
		broadcaster = srv

		adv = discovery.NewAdvertiser(logger)
		if err := adv.Start(name, port); err != nil {
			logger.Warn("mDNS advertisement failed", "err", err)
		}
	}

	eng := engine.New(capture, sinks, loopback, broadcaster, logger)
	if err := eng.Start(); err != nil {
		logger.Fatal("start engine", "err", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	if err := eng.Stop(); err != nil {
		logger.Error("stop engine", "err", err)
	}
	if adv != nil {
		adv.Stop()
	}
	if srv != nil {
		_ = srv.Close()
	}
}

func parseSinks(flags []string, configured []config.SinkEntry, logger *log.Logger) []engine.SinkConfig {
	var sinks []engine.SinkConfig
	for _, f := range flags {
		var index, gain, delay int
		if _, err := fmt.Sscanf(f, "%d:%d:%d", &index, &gain, &delay); err != nil {
			logger.Warn("malformed --sink flag, skipping", "value", f, "err", err)
			continue
		}
		sinks = append(sinks, engine.SinkConfig{EndpointIndex: index, Gain: gain, DelayMs: delay})
	}
	if len(sinks) > 0 {
		return sinks
	}
	for _, s := range configured {
		sinks = append(sinks, engine.SinkConfig{EndpointIndex: s.EndpointIndex, Gain: s.Gain, DelayMs: s.DelayMs})
	}
	return sinks
}
