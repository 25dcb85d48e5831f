// Command syncwave-calibrate measures the delay of one or more playback
// sinks relative to a reference recording device and prints the results
// as sink configuration ready to paste into syncwave.yaml.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/term"
	"github.com/spf13/pflag"

	"github.com/syncwave/syncwave/internal/audio"
	"github.com/syncwave/syncwave/internal/calibration"
)

func main() {
	var (
		inputDevice  = pflag.IntP("input", "i", -1, "Recording device index. -1 uses the host default input.")
		outputFlag   = pflag.StringArrayP("output", "o", nil, "Output device index to calibrate. May be repeated.")
		interactive  = pflag.BoolP("interactive", "I", false, "Pick devices interactively instead of passing --output.")
		useLoopback  = pflag.Bool("use-loopback", false, "Resolve the input device through the loopback-endpoint preference instead of as a raw device index.")
		help         = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: syncwave-calibrate [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	logger := log.Default()

	release, err := audio.Acquire()
	if err != nil {
		logger.Fatal("acquire audio subsystem", "err", err)
	}
	defer release()

	inputIndex := *inputDevice
	if inputIndex < 0 {
		dev, err := audio.DefaultInput()
		if err != nil {
			logger.Fatal("default input device", "err", err)
		}
		inputIndex = dev.Index
	}

	var outputs []int
	switch {
	case *interactive:
		outputs = pickOutputsInteractively(logger)
	case len(*outputFlag) > 0:
		for _, s := range *outputFlag {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				logger.Fatal("malformed --output value", "value", s)
			}
			outputs = append(outputs, n)
		}
	default:
		logger.Fatal("pass --output index (repeatable) or --interactive")
	}

	c := calibration.New(logger)
	results := c.CalibrateAll(outputs, inputIndex, *useLoopback, func(msg string) {
		fmt.Println(msg)
	})

	fmt.Println("\nsinks:")
	for _, idx := range outputs {
		r := results[idx]
		fmt.Printf("  - endpoint_index: %d\n    gain: 100\n    delay_ms: %.0f\n", idx, r.DelayMs)
	}
}

// pickOutputsInteractively lists output-capable devices and reads single
// keypresses (raw terminal mode, no line buffering/echo), adding the
// device for each digit pressed to the selection until Enter, the way an
// interactive command-line tool reads a menu choice. A digit pressed twice
// adds its device twice.
func pickOutputsInteractively(logger *log.Logger) []int {
	devices, err := audio.Devices()
	if err != nil {
		logger.Fatal("enumerate devices", "err", err)
	}

	var candidates []audio.Endpoint
	for _, d := range devices {
		if d.MaxOutputChannels > 0 {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		logger.Fatal("no output devices found")
	}

	fmt.Println("Output devices:")
	for i, d := range candidates {
		fmt.Printf("  [%d] %s\n", i, d.Name)
	}
	fmt.Print("\nPress the digit for each device to calibrate, Enter when done: ")

	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		logger.Fatal("open terminal", "err", err)
	}
	defer tty.Close()
	defer tty.Restore()

	var chosen []int
	buf := make([]byte, 1)
	for {
		if _, err := tty.Read(buf); err != nil {
			break
		}
		if buf[0] == '\r' || buf[0] == '\n' {
			break
		}
		digit := int(buf[0] - '0')
		if digit >= 0 && digit < len(candidates) {
			chosen = append(chosen, candidates[digit].Index)
			fmt.Printf(" +%s", candidates[digit].Name)
		}
	}
	fmt.Println()
	return chosen
}
