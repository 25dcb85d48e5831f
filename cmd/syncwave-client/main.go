// Command syncwave-client discovers and connects to a SyncWave stream
// server, playing the received audio through a local output device.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/syncwave/syncwave/internal/audio"
	"github.com/syncwave/syncwave/internal/discovery"
	"github.com/syncwave/syncwave/internal/stream"
)

func main() {
	var (
		host           = pflag.StringP("host", "H", "", "Server host. If empty, discover via mDNS.")
		port           = pflag.IntP("port", "p", 5555, "Server port.")
		outputDevice   = pflag.IntP("output", "o", -1, "Output device index. -1 uses the host default.")
		discoverWindow = pflag.DurationP("discover-timeout", "t", 3*time.Second, "How long to browse for servers when --host is not given.")
		name           = pflag.StringP("name", "n", "SyncWave Client", "Client display name sent to the server.")
		help           = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: syncwave-client [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	logger := log.Default()

	targetHost, targetPort := *host, *port
	if targetHost == "" {
		logger.Info("discovering servers", "timeout", *discoverWindow)
		servers, err := discovery.Browse(*discoverWindow)
		if err != nil {
			logger.Fatal("browse", "err", err)
		}
		if len(servers) == 0 {
			logger.Fatal("no servers found; pass --host to connect manually")
		}
		targetHost = servers[0].Address
		targetPort = servers[0].Port
		logger.Info("selected server", "name", servers[0].Name, "addr", targetHost, "port", targetPort)
	}

	release, err := audio.Acquire()
	if err != nil {
		logger.Fatal("acquire audio subsystem", "err", err)
	}
	defer release()

	cl := stream.NewClient(logger)
	if err := cl.Connect(targetHost, targetPort, *name); err != nil {
		logger.Fatal("connect", "err", err)
	}
	defer cl.Disconnect()

	const channels = 2
	outBuf := make([]int16, audio.BlockSize*channels)
	outStream, err := audio.OpenPlayback(resolveOutput(*outputDevice, logger), channels, audio.DefaultSampleRate, outBuf)
	if err != nil {
		logger.Fatal("open output device", "err", err)
	}
	defer outStream.Close()
	if err := outStream.Start(); err != nil {
		logger.Fatal("start output stream", "err", err)
	}
	defer outStream.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	stopCh := make(chan struct{})
	go func() {
		<-sigCh
		close(stopCh)
	}()

	playbackLoop(cl, outStream, outBuf, stopCh, logger)
}

func resolveOutput(index int, logger *log.Logger) int {
	if index >= 0 {
		return index
	}
	dev, err := audio.DefaultOutput()
	if err != nil {
		logger.Fatal("default output device", "err", err)
	}
	return dev.Index
}

func playbackLoop(cl *stream.Client, outStream *portaudio.Stream, outBuf []int16, stop <-chan struct{}, logger *log.Logger) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		frame := cl.NextFrame()
		if frame == nil {
			time.Sleep(stream.PlaybackPollInterval)
			continue
		}
		if len(frame)/2 != len(outBuf) {
			continue // short block from a resize mid-session; drop rather than misalign the buffer
		}
		bytesToInt16(frame, outBuf)
		if err := outStream.Write(); err != nil {
			logger.Warn("playback write error", "err", err)
		}
	}
}

func bytesToInt16(in []byte, out []int16) {
	for i := range out {
		out[i] = int16(uint16(in[2*i]) | uint16(in[2*i+1])<<8)
	}
}
