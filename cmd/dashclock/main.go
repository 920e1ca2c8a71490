// Command dashclock drives the dashboard clock and parking-distance display
// and publishes its state changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/dashclock/internal/analog"
	"github.com/sweeney/dashclock/internal/config"
	"github.com/sweeney/dashclock/internal/dashboard"
	"github.com/sweeney/dashclock/internal/diag"
	"github.com/sweeney/dashclock/internal/display"
	"github.com/sweeney/dashclock/internal/gpio"
	"github.com/sweeney/dashclock/internal/logic"
	"github.com/sweeney/dashclock/internal/mqtt"
	"github.com/sweeney/dashclock/internal/ranging"
	"github.com/sweeney/dashclock/internal/status"
	"github.com/sweeney/dashclock/internal/timebase"
	"github.com/sweeney/dashclock/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used if empty)")
	frame := flag.Duration("frame", 20*time.Millisecond, "Main loop frame interval")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "MQTT heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", "", "HTTP status address (empty to disable)")
	diagPort := flag.String("diag-port", "", "Serial port for the per-second diagnostic line (empty to disable)")
	printState := flag.Bool("print-state", false, "Print current inputs and exit")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "frame":
			cfg.Clock.Frame = frame.String()
		case "broker":
			cfg.MQTT.Broker = *broker
		case "heartbeat":
			cfg.MQTT.Heartbeat = heartbeat.String()
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "diag-port":
			cfg.Diag.Port = *diagPort
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg *config.Config, printState bool) error {
	frame, _ := cfg.FrameInterval()
	heartbeat, _ := cfg.HeartbeatInterval()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	base := timebase.Start(ctx)

	lines, err := gpio.NewRealLines(cfg.GPIOPins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	adc, err := analog.OpenMCP3008(cfg.Buttons.SPIPort)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer adc.Close()

	if printState {
		return printInputs(os.Stdout, lines.Reverse(), adc, cfg.Buttons.Channel, cfg.Dashboard().Bands)
	}

	oled, err := display.OpenOLED(cfg.Display.I2CBus)
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	defer oled.Close()

	var beat dashboard.Beater
	if cfg.Diag.Port != "" {
		port, err := diag.OpenSerial(cfg.Diag.Port, cfg.Diag.Baud)
		if err != nil {
			return fmt.Errorf("init diag: %w", err)
		}
		defer port.Close()
		beat = diag.NewHeartbeat(port)
	}

	ctrl := dashboard.New(cfg.Dashboard(), dashboard.Deps{
		Clock:     base,
		Reverse:   lines.Reverse(),
		Status:    lines.Status(),
		Ranger:    ranging.New(base, lines.Trigger(), lines.Echo(), cfg.RangingTiming()),
		ADC:       adc,
		Display:   oled,
		Heartbeat: beat,
	})

	var publisher mqtt.Publisher = disabledPublisher{}
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.MQTT.Broker)
		defer p.Close()
		publisher = p
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		FrameMs:     frame.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
		DiagPort:    cfg.Diag.Port,
		Title:       cfg.Display.Title,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(ctrl.State())

	publishStartup(publisher, tracker)

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: frame=%v broker=%q heartbeat=%v diag=%q pins=%+v channel=%d",
		frame, cfg.MQTT.Broker, heartbeat, cfg.Diag.Port, cfg.GPIOPins(), cfg.Buttons.Channel)

	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, publisher, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

// disabledPublisher stands in when no broker is configured.
type disabledPublisher struct{}

func (disabledPublisher) Publish(logic.Event) error            { return nil }
func (disabledPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (disabledPublisher) Close() error                         { return nil }

// bufferReporter is implemented by publishers that queue while offline.
type bufferReporter interface {
	Buffered() int
}

func refreshMQTT(tracker *status.Tracker, publisher mqtt.Publisher) {
	cs, ok := publisher.(mqtt.ConnectionStatus)
	if !ok {
		return
	}
	buffered := 0
	if br, ok := publisher.(bufferReporter); ok {
		buffered = br.Buffered()
	}
	tracker.SetMQTT(cs.IsConnected(), buffered)
}

func publishStartup(publisher mqtt.Publisher, tracker *status.Tracker) {
	snap := tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}
}

func runLoop(ctrl *dashboard.Controller, publisher mqtt.Publisher, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			refreshMQTT(tracker, publisher)
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			events := ctrl.Step()
			t := now()

			for _, event := range events {
				event.Timestamp = t
				log.Printf("event: %s (mode=%s clock=%s time=%s)", event.Type, event.MainMode, event.ClockMode, event.Time)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			tracker.Update(ctrl.State())
			refreshMQTT(tracker, publisher)

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				st := snap.Dashboard.Stats
				log.Printf("heartbeat: mode=%s time=%s frames=%d measurements=%d no_echo=%d",
					snap.Dashboard.MainMode, snap.Dashboard.Time, st.Frames, st.Measurements, st.NoEcho)
				hb := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hb); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// printInputs reads the reverse line and the button ladder once.
func printInputs(w io.Writer, reverse gpio.Input, adc analog.ADC, channel int, bands logic.Bands) error {
	rev, err := reverse.Get()
	if err != nil {
		return fmt.Errorf("read reverse line: %w", err)
	}
	raw, err := adc.ReadChannel(channel)
	if err != nil {
		return fmt.Errorf("read buttons: %w", err)
	}
	fmt.Fprintf(w, "reverse: %s (mode %s), buttons: raw=%d button=%s\n",
		stateString(rev), logic.SelectMode(rev), raw, bands.Classify(raw))
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
