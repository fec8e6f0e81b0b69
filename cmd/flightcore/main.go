// Command flightcore runs the control core against a simulated receiver and
// a simulated airframe.
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/config"
	"github.com/BryanSouza91/flightcore/internal/event"
	"github.com/BryanSouza91/flightcore/internal/flight"
	"github.com/BryanSouza91/flightcore/internal/fusion"
	"github.com/BryanSouza91/flightcore/internal/logging"
	"github.com/BryanSouza91/flightcore/internal/mathutil"
	"github.com/BryanSouza91/flightcore/internal/metrics"
	"github.com/BryanSouza91/flightcore/internal/rx"
	"github.com/BryanSouza91/flightcore/internal/state"
	"github.com/BryanSouza91/flightcore/internal/status"
)

const Version = "0.1.0"

func main() {
	var (
		configFile  = pflag.StringP("config", "c", "", "YAML configuration file (default: built-in defaults)")
		debug       = pflag.BoolP("debug", "d", false, "Log at DEBUG level")
		metricsAddr = pflag.String("metrics-addr", "", "Serve /metrics on this address (overrides metrics.listen)")
		receiver    = pflag.StringP("receiver", "r", "ppm", "Receiver provider when no config file is given (none, ppm)")
		duration    = pflag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
		frameRate   = pflag.Int("frame-rate", 50, "Simulated receiver frame rate in Hz")
		dropAfter   = pflag.Duration("drop-after", 0, "Stop sending receiver frames after this long (0 = never)")
		version     = pflag.BoolP("version", "v", false, "Print version and exit")
	)
	pflag.Parse()

	if *version {
		fmt.Println("flightcore", Version)
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "flightcore:", err)
			os.Exit(1)
		}
	}
	if *configFile == "" || pflag.Lookup("receiver").Changed {
		p, err := config.ParseProvider(*receiver)
		if err != nil {
			fmt.Fprintln(os.Stderr, "flightcore:", err)
			os.Exit(1)
		}
		cfg.Receiver.Provider = p
	}

	level, ok := logging.ParseLevel(cfg.Logging.Level)
	if !ok {
		level = logging.LevelInfo
	}
	if *debug {
		level = logging.LevelDebug
	}
	log := logging.New(level, os.Stdout)
	log.Info("starting", logging.WithFields(logging.Fields{
		"version":   Version,
		"config":    *configFile,
		"provider":  cfg.Receiver.Provider.String(),
		"mixer":     cfg.Control.Mixer.String(),
		"loop_rate": cfg.LoopRate,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var m *metrics.Metrics
	addr := cfg.Metrics.Listen
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if cfg.Metrics.Enabled || *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		go serveMetrics(ctx, addr, reg, log)
	}

	clk := clock.NewSystem()
	mb := rx.NewMailbox()
	dev, err := rx.Select(cfg.Receiver.Provider, rx.Ports{PPM: mb}, clk)
	if err != nil {
		log.Error("receiver setup failed", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	if dev != nil {
		go transmit(ctx, mb, *frameRate, *dropAfter, log)
	}

	events := event.NewQueue(16)
	core := flight.New(cfg, flight.Options{
		Device:  dev,
		Sink:    events,
		Clock:   clk,
		Log:     log,
		Metrics: m,
	})
	core.Begin()

	airframe := newAirframe(float64(cfg.LoopRate), log)
	led := status.NewLED(&logPin{log: log.With("led")}, clk)
	loop := &flight.Loop{
		Core:     core,
		Interval: time.Duration(cfg.LoopInterval() * float64(time.Second)),
		Sensor:   airframe,
		Actuator: &outputs{airframe: airframe, led: led, core: core, active: dev != nil},
	}

	go drain(ctx, events, log)

	err = loop.Run(ctx)
	fs := core.State()
	log.Info("stopped", logging.WithFields(logging.Fields{
		"reason":   err.Error(),
		"armed":    core.Authority().IsArmed(),
		"failsafe": fs.Input.Failsafe.String(),
	}))
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", logging.WithField("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server failed", logging.WithField("error", err.Error()))
	}
}

// transmit plays the part of the pulse capture: it sweeps the roll stick,
// raises the arm switch after two seconds and keeps the throttle low.
func transmit(ctx context.Context, mb *rx.Mailbox, rate int, dropAfter time.Duration, log *logging.Logger) {
	if rate <= 0 {
		rate = 50
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	start := time.Now()
	channels := []uint16{1500, 1500, 1000, 1500, 1000, 1000, 1500, 1500}
	dropped := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		elapsed := time.Since(start)
		if dropAfter > 0 && elapsed > dropAfter {
			if !dropped {
				log.Warn("simulated receiver went silent")
				dropped = true
			}
			continue
		}
		channels[state.Roll] = uint16(1500 + 200*math.Sin(elapsed.Seconds()))
		if elapsed > 2*time.Second {
			channels[4] = 1800
		}
		mb.Put(channels, false)
	}
}

// drain consumes the control completion events the way a mixer would.
func drain(ctx context.Context, q *event.Queue, log *logging.Logger) {
	var cycles int
	report := time.NewTicker(5 * time.Second)
	defer report.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.C():
			cycles++
		case <-report.C:
			log.Debug("control cycles", logging.WithField("count", cycles))
		}
	}
}

// airframe is a rigid body with first-order rate response and no coupling
// between axes. It reports noisy IMU samples through the attitude estimator.
type airframe struct {
	dt    float64
	angle [3]float64
	rate  [3]float64
	est   *fusion.Estimator
}

const (
	rateGain    = 40.0 // rad/s^2 per unit output
	rateDamping = 4.0  // 1/s
	maxTilt     = math.Pi / 2
	gyroNoise   = 0.01 // rad/s
	accelNoise  = 0.02 // g
)

func newAirframe(rate float64, log *logging.Logger) *airframe {
	return &airframe{dt: 1 / rate, est: fusion.NewEstimator(rate, log)}
}

func (a *airframe) Sample() state.Measurement {
	return a.est.Update(a.imu())
}

// imu returns what the IMU would read now.
func (a *airframe) imu() fusion.Sample {
	roll, pitch := a.angle[state.Roll], a.angle[state.Pitch]
	s := fusion.Sample{
		Accel: [3]float64{
			-math.Sin(pitch),
			math.Sin(roll) * math.Cos(pitch),
			math.Cos(roll) * math.Cos(pitch),
		},
		Gyro: a.rate,
	}
	for i := range s.Gyro {
		s.Gyro[i] += rand.NormFloat64() * gyroNoise
		s.Accel[i] += rand.NormFloat64() * accelNoise
	}
	return s
}

func (a *airframe) Apply(cmd state.ActuatorCommand) {
	for i := range a.rate {
		a.rate[i] += (cmd.Output[i]*rateGain - a.rate[i]*rateDamping) * a.dt
		a.angle[i] += a.rate[i] * a.dt
		if i != int(state.Yaw) {
			a.angle[i] = mathutil.Clamp(a.angle[i], -maxTilt, maxTilt)
		}
	}
}

// outputs applies the command to the airframe and refreshes the status LED.
type outputs struct {
	airframe *airframe
	led      *status.LED
	core     *flight.Core
	active   bool
}

func (o *outputs) Apply(cmd state.ActuatorCommand) {
	o.airframe.Apply(cmd)
	o.led.SetPattern(status.Select(&o.core.State().Input, o.core.Authority().IsArmed(), o.active))
	o.led.Update()
}

// logPin stands in for the status LED pin.
type logPin struct {
	log *logging.Logger
}

func (p *logPin) High() { p.log.Debug("on") }

func (p *logPin) Low() { p.log.Debug("off") }
