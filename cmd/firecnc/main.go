package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/intelliservenz/firecnc/internal/axis"
	"github.com/intelliservenz/firecnc/internal/bus"
	"github.com/intelliservenz/firecnc/internal/config"
	"github.com/intelliservenz/firecnc/internal/core"
	"github.com/intelliservenz/firecnc/internal/events"
	"github.com/intelliservenz/firecnc/internal/led"
	"github.com/intelliservenz/firecnc/internal/logging"
	"github.com/intelliservenz/firecnc/internal/poller"
	"github.com/intelliservenz/firecnc/internal/telemetry"
	"github.com/intelliservenz/firecnc/internal/ws"
)

func main() {
	var (
		configPath = flag.String("config", "firecnc.yaml", "path to the controller config")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
		serialDev  = flag.String("serial", "", "serial device (overrides config)")
		simOnly    = flag.Bool("sim-only", false, "no hardware: simulated bus and strips")
		debug      = flag.Bool("debug", false, "debug log level")
	)
	flag.Parse()

	// ---- Logging: console plus the in-memory ring behind /logz ----
	ring := logging.NewRing(512)
	zerolog.TimeFieldFormat = time.RFC3339
	out := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen},
		ring,
	)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	if !*debug {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	// ---- Config; a missing card/file is the SD error condition ----
	cfg, cfgErr := config.Load(*configPath)
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *addr != "" {
		cfg.Network.ListenAddr = *addr
	}
	if *serialDev != "" {
		cfg.Network.SerialDevice = *serialDev
	}

	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("periph host init failed; hardware drivers unavailable")
	}

	// ---- Fieldbus ----
	var (
		b    poller.Bus
		port bus.Port
	)
	if *simOnly {
		b = newSimBus(cfg.AxisConfigs())
		log.Info().Msg("simulated servo bus")
	} else {
		p, err := bus.OpenSerial(cfg.Network.SerialDevice, cfg.Network.SerialBaud, 10*time.Millisecond)
		if err != nil {
			log.Warn().Err(err).Str("dev", cfg.Network.SerialDevice).Msg("serial open failed; falling back to simulated bus")
			b = newSimBus(cfg.AxisConfigs())
		} else {
			port = p
			var dir bus.DirectionLine
			if cfg.Network.RTSPin != "" {
				dl, err := bus.OpenDirectionLine(cfg.Network.RTSPin)
				if err != nil {
					log.Warn().Err(err).Str("pin", cfg.Network.RTSPin).Msg("direction line unavailable; assuming auto-direction adapter")
					dl = bus.NopDirection{}
				}
				dir = dl
			}
			b = bus.NewArbiter(p, dir, log.With().Str("comp", "bus").Logger())
		}
	}

	// ---- Strips ----
	devs := [axis.Count]string{axis.Y: cfg.LEDs.SPIDevY, axis.YY: cfg.LEDs.SPIDevYY, axis.X: cfg.LEDs.SPIDevX}
	counts := [axis.Count]int{axis.Y: cfg.LEDs.YCount, axis.YY: cfg.LEDs.YYCount, axis.X: cfg.LEDs.XCount}
	var drv [axis.Count]led.Driver
	for _, a := range axis.All {
		if *simOnly {
			drv[a] = led.NewSim()
			continue
		}
		s, err := led.OpenSPI(devs[a], counts[a])
		if err != nil {
			log.Warn().Err(err).Str("axis", a.String()).Str("dev", devs[a]).Msg("SPI strip init failed; falling back to sim")
			drv[a] = led.NewSim()
			continue
		}
		drv[a] = s
	}

	// ---- Events: log always, MQTT when a broker is configured ----
	notify := events.Multi{events.LogNotifier{Log: log.Logger}}
	var pub *telemetry.Publisher
	if cfg.Network.MQTTBroker != "" {
		p, err := telemetry.Connect(cfg.Network.MQTTBroker, cfg.Network.MQTTTopic, log.With().Str("comp", "mqtt").Logger())
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.Network.MQTTBroker).Msg("mqtt connect failed; running without telemetry")
		} else {
			pub = p
			notify = append(notify, pub)
		}
	}

	// ---- Controller ----
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	ctl := core.New(cfg, b, drv, notify, log.Logger)
	ctl.Start(runCtx)
	if cfgErr != nil {
		ctl.RaiseSdError()
	}

	// ---- HTTP ----
	state := ws.NewState(ctl, ring, log.With().Str("comp", "ws").Logger())
	mux := http.NewServeMux()
	state.Routes(mux)
	srv := &http.Server{
		Addr:         cfg.Network.ListenAddr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go state.RunBroadcastLoop(runCtx)
	go func() {
		log.Info().Str("addr", cfg.Network.ListenAddr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown: fade the strips to blue, then exit ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = ctl.Shutdown(shutdownCtx)
	stop()

	_ = srv.Close()
	if pub != nil {
		pub.Close()
	}
	for _, a := range axis.All {
		if drv[a] != nil {
			_ = drv[a].Close()
		}
	}
	if port != nil {
		_ = port.Close()
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// simBus synthesizes a slow carriage sweep per axis so the full display
// pipeline runs on a desk without drives attached.
type simBus struct {
	start time.Time
	rails map[uint8]int
}

func newSimBus(cfgs [axis.Count]axis.Config) *simBus {
	rails := map[uint8]int{}
	for _, c := range cfgs {
		rails[c.Slave] = c.RailLenMM
	}
	return &simBus{start: time.Now(), rails: rails}
}

func (b *simBus) ReadHoldingRegisters(_ time.Duration, slave uint8, addr, count uint16) ([]uint16, error) {
	rail := b.rails[slave]
	if rail <= 0 {
		rail = 1000
	}
	// triangle wave: one end-to-end pass every 10s, offset per slave
	const period = 20 * time.Second
	t := (time.Since(b.start) + time.Duration(slave)*3*time.Second) % period
	half := period / 2
	var mm int
	if t < half {
		mm = int(int64(rail) * int64(t) / int64(half))
	} else {
		mm = int(int64(rail) * int64(period-t) / int64(half))
	}

	switch addr {
	case 10: // limit word
		var w uint16
		if mm <= 0 {
			w |= 0x01
		}
		if mm >= rail {
			w |= 0x02
		}
		return []uint16{w}, nil
	case 20: // position, high then low
		u := uint32(int32(mm))
		return []uint16{uint16(u >> 16), uint16(u)}, nil
	}
	return make([]uint16, count), nil
}
