// Command microwave runs a push-button cook timer and a potentiometer
// controlled oven heater, and reports both over MQTT and HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sweeney/microwave-oven/internal/clock"
	"github.com/sweeney/microwave-oven/internal/config"
	"github.com/sweeney/microwave-oven/internal/mqtt"
	"github.com/sweeney/microwave-oven/internal/periph"
	"github.com/sweeney/microwave-oven/internal/status"
	"github.com/sweeney/microwave-oven/internal/web"
)

// displayBrightness is the TM1637 brightness level, 0 to 7.
const displayBrightness = 7

// publishQueue is how many MQTT events may wait for a slow broker before
// new ones are rejected.
const publishQueue = 64

type options struct {
	configPath string
	broker     string
	httpAddr   string
	logLevel   string
	printState bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "microwave",
		Short:        "Microwave cook timer and oven heater controller",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags().Changed)
			if err != nil {
				return err
			}

			log, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := run(cfg, opts.printState, log); err != nil {
				log.Errorw("fatal", "error", err)
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "/etc/microwave.yaml", "YAML config file (missing file uses defaults)")
	f.StringVar(&opts.broker, "broker", "", "MQTT broker address (overrides config)")
	f.StringVar(&opts.httpAddr, "http", "", `HTTP status address (overrides config, "off" disables)`)
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.BoolVar(&opts.printState, "print-state", false, "Print the button and potentiometer state and exit")
	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts options, changed func(string) bool) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if changed("broker") {
		cfg.MQTT.Broker = opts.broker
	}
	if changed("http") {
		cfg.HTTP.Addr = opts.httpAddr
		if opts.httpAddr == "off" {
			cfg.HTTP.Addr = ""
		}
	}
	return cfg, nil
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Sugar(), nil
}

func run(cfg *config.Config, printState bool, log *zap.SugaredLogger) (err error) {
	chip, err := periph.OpenChip(cfg.Pins.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() { err = multierr.Append(err, chip.Close()) }()

	button, err := chip.Input(cfg.Pins.Button)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}

	pot, err := periph.OpenSerialADC(cfg.ADC.Port, cfg.ADC.BaudRate, cfg.ADC.MaxAge, log.Named("adc"))
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer func() { err = multierr.Append(err, pot.Close()) }()

	if printState {
		return printInputs(os.Stdout, button, pot, clock.Wall{}, cfg.ADC.MaxAge)
	}

	dev, closeOutputs, err := openOutputs(cfg, chip)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeOutputs()) }()
	dev.Button = button
	dev.Pot = pot

	broker := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, log.Named("mqtt"))
	// Publishes run off the scheduler goroutine; Close drains then
	// disconnects, so SHUTDOWN still goes out.
	publisher := mqtt.NewAsync(broker, publishQueue, log.Named("mqtt"))
	defer publisher.Close()

	tracker := status.NewTracker(clock.Wall{}, statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, log.Named("web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Infow("http status server listening", "addr", cfg.HTTP.Addr)
	}

	a, err := newApp(cfg, dev, clock.Wall{}, publisher, broker, tracker, log)
	if err != nil {
		return err
	}

	log.Infow("started",
		"increment", cfg.Timer.Increment,
		"max_time", cfg.Timer.MaxTime,
		"debounce", cfg.Timer.Debounce,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.Schedule.Heartbeat,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return a.runLoop(context.Background(), sigCh)
}

// openOutputs claims the output lines and PWM channels. The returned func
// releases the PWM channels; GPIO lines are released with the chip.
func openOutputs(cfg *config.Config, chip *periph.Chip) (devices, func() error, error) {
	var dev devices
	var err error

	if dev.Light, err = chip.Output(cfg.Pins.Light, false); err != nil {
		return dev, nil, fmt.Errorf("init light: %w", err)
	}
	if dev.LED, err = chip.Output(cfg.Pins.LED, false); err != nil {
		return dev, nil, fmt.Errorf("init led: %w", err)
	}
	clkLine, err := chip.Output(cfg.Pins.DisplayCLK, true)
	if err != nil {
		return dev, nil, fmt.Errorf("init display clk: %w", err)
	}
	dioLine, err := chip.Output(cfg.Pins.DisplayDIO, true)
	if err != nil {
		return dev, nil, fmt.Errorf("init display dio: %w", err)
	}
	dev.Display = periph.NewTM1637(clkLine, dioLine, clock.Wall{}, displayBrightness)

	speaker, err := periph.OpenSysfsPWM(periph.SysfsRoot, cfg.PWM.Chip, cfg.PWM.Speaker, cfg.Speaker.RunningFreq, cfg.PWM.DutyMax)
	if err != nil {
		return dev, nil, fmt.Errorf("init speaker: %w", err)
	}
	heater, err := periph.OpenSysfsPWM(periph.SysfsRoot, cfg.PWM.Chip, cfg.PWM.Heater, cfg.Oven.HeaterFreq, cfg.PWM.DutyMax)
	if err != nil {
		return dev, nil, multierr.Append(fmt.Errorf("init heater: %w", err), speaker.Close())
	}
	dev.Speaker, dev.Heater = speaker, heater

	return dev, func() error { return multierr.Append(speaker.Close(), heater.Close()) }, nil
}

// inputPollInterval is how often printInputs retries the potentiometer while
// the serial bridge has not reported yet.
const inputPollInterval = 50 * time.Millisecond

// printInputs waits up to maxAge for a first potentiometer reading, then
// writes both inputs to w.
func printInputs(w io.Writer, button periph.Input, pot periph.Analog, clk clock.Clock, maxAge time.Duration) error {
	pressed, err := button.Get()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}

	deadline := clk.Now().Add(maxAge)
	raw, err := pot.Read()
	for err != nil && clk.Now().Before(deadline) {
		clk.Sleep(inputPollInterval)
		raw, err = pot.Read()
	}
	if err != nil {
		return fmt.Errorf("read potentiometer: %w", err)
	}

	_, err = fmt.Fprintf(w, "Button: %s, Potentiometer: %d\n", pressedString(pressed), raw)
	return err
}

func pressedString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		IncrementMs: cfg.Timer.Increment.Milliseconds(),
		MaxTimeMs:   cfg.Timer.MaxTime.Milliseconds(),
		DebounceMs:  cfg.Timer.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Schedule.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	}
}
