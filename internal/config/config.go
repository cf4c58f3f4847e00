// Package config holds the controller's tunables and loads them from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the controller configuration.
type Config struct {
	Timer    TimerConfig    `yaml:"timer"`
	Speaker  SpeakerConfig  `yaml:"speaker"`
	Oven     OvenConfig     `yaml:"oven"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Pins     PinConfig      `yaml:"pins"`
	PWM      PWMConfig      `yaml:"pwm"`
	ADC      ADCConfig      `yaml:"adc"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// TimerConfig controls cook time accumulation and button debounce.
type TimerConfig struct {
	Increment time.Duration `yaml:"increment"` // added per accepted press
	MaxTime   time.Duration `yaml:"max_time"`  // remaining time is clamped to this
	Debounce  time.Duration `yaml:"debounce"`  // minimum spacing between accepted presses
}

// SpeakerConfig holds the speaker tones. Duty values are on the PWM scale
// (0..PWMConfig.DutyMax).
type SpeakerConfig struct {
	RunningFreq int           `yaml:"running_freq"`
	RunningDuty int           `yaml:"running_duty"`
	BeepFreq    int           `yaml:"beep_freq"`
	BeepDuty    int           `yaml:"beep_duty"`
	Beep        time.Duration `yaml:"beep"`      // confirmation beep on press
	DoneBeep    time.Duration `yaml:"done_beep"` // each completion pulse
	DoneGap     time.Duration `yaml:"done_gap"`  // silence between completion pulses
	DoneBeeps   int           `yaml:"done_beeps"`
}

// OvenConfig controls the heater regulator.
type OvenConfig struct {
	IgnoreThreshold int `yaml:"ignore_threshold"` // readings at or below are treated as zero
	MaxDuty         int `yaml:"max_duty"`         // readings above are clamped
	HeaterFreq      int `yaml:"heater_freq"`
}

// ScheduleConfig holds the periods of the cooperative tasks.
type ScheduleConfig struct {
	Button    time.Duration `yaml:"button"`
	Display   time.Duration `yaml:"display"`
	Oven      time.Duration `yaml:"oven"`
	Blink     time.Duration `yaml:"blink"`
	Status    time.Duration `yaml:"status"`
	Heartbeat time.Duration `yaml:"heartbeat"` // MQTT heartbeat, 0 disables
}

// PinConfig holds GPIO line offsets on the chip.
type PinConfig struct {
	Chip       string `yaml:"chip"`
	Button     int    `yaml:"button"`
	Light      int    `yaml:"light"`
	LED        int    `yaml:"led"`
	DisplayCLK int    `yaml:"display_clk"`
	DisplayDIO int    `yaml:"display_dio"`
}

// PWMConfig selects the sysfs PWM channels.
type PWMConfig struct {
	Chip    int `yaml:"chip"`
	Speaker int `yaml:"speaker"`
	Heater  int `yaml:"heater"`
	DutyMax int `yaml:"duty_max"`
}

// ADCConfig selects the serial port of the ADC bridge.
type ADCConfig struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	MaxAge   time.Duration `yaml:"max_age"` // readings older than this are a fault
}

// MQTTConfig holds the broker connection.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// HTTPConfig holds the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration with the appliance's stock values.
func Default() *Config {
	return &Config{
		Timer: TimerConfig{
			Increment: 5 * time.Second,
			MaxTime:   25 * time.Second,
			Debounce:  100 * time.Millisecond,
		},
		Speaker: SpeakerConfig{
			RunningFreq: 50,
			RunningDuty: 50,
			BeepFreq:    1500,
			BeepDuty:    512,
			Beep:        100 * time.Millisecond,
			DoneBeep:    400 * time.Millisecond,
			DoneGap:     100 * time.Millisecond,
			DoneBeeps:   3,
		},
		Oven: OvenConfig{
			IgnoreThreshold: 50, // potentiometer offset
			MaxDuty:         1023,
			HeaterFreq:      5000,
		},
		Schedule: ScheduleConfig{
			Button:    10 * time.Millisecond,
			Display:   100 * time.Millisecond,
			Oven:      100 * time.Millisecond,
			Blink:     time.Second,
			Status:    250 * time.Millisecond,
			Heartbeat: 15 * time.Minute,
		},
		Pins: PinConfig{
			Chip:       "gpiochip0",
			Button:     15,
			Light:      12,
			LED:        2,
			DisplayCLK: 5,
			DisplayDIO: 4,
		},
		PWM: PWMConfig{
			Chip:    0,
			Speaker: 0,
			Heater:  1,
			DutyMax: 1023,
		},
		ADC: ADCConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
			MaxAge:   time.Second,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://192.168.1.200:1883",
			ClientID: "microwave-oven",
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; missing fields are filled from the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ensureDefaults fills zero-valued fields that have no meaningful zero.
// Schedule.Heartbeat is left alone: zero disables it.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Timer.Increment == 0 {
		c.Timer.Increment = def.Timer.Increment
	}
	if c.Timer.MaxTime == 0 {
		c.Timer.MaxTime = def.Timer.MaxTime
	}
	if c.Timer.Debounce == 0 {
		c.Timer.Debounce = def.Timer.Debounce
	}

	if c.Speaker.RunningFreq == 0 {
		c.Speaker.RunningFreq = def.Speaker.RunningFreq
	}
	if c.Speaker.BeepFreq == 0 {
		c.Speaker.BeepFreq = def.Speaker.BeepFreq
	}
	if c.Speaker.BeepDuty == 0 {
		c.Speaker.BeepDuty = def.Speaker.BeepDuty
	}
	if c.Speaker.Beep == 0 {
		c.Speaker.Beep = def.Speaker.Beep
	}
	if c.Speaker.DoneBeep == 0 {
		c.Speaker.DoneBeep = def.Speaker.DoneBeep
	}
	if c.Speaker.DoneGap == 0 {
		c.Speaker.DoneGap = def.Speaker.DoneGap
	}
	if c.Speaker.DoneBeeps == 0 {
		c.Speaker.DoneBeeps = def.Speaker.DoneBeeps
	}

	if c.Oven.MaxDuty == 0 {
		c.Oven.MaxDuty = def.Oven.MaxDuty
	}
	if c.Oven.HeaterFreq == 0 {
		c.Oven.HeaterFreq = def.Oven.HeaterFreq
	}

	if c.Schedule.Button == 0 {
		c.Schedule.Button = def.Schedule.Button
	}
	if c.Schedule.Display == 0 {
		c.Schedule.Display = def.Schedule.Display
	}
	if c.Schedule.Oven == 0 {
		c.Schedule.Oven = def.Schedule.Oven
	}
	if c.Schedule.Blink == 0 {
		c.Schedule.Blink = def.Schedule.Blink
	}
	if c.Schedule.Status == 0 {
		c.Schedule.Status = def.Schedule.Status
	}

	if c.Pins.Chip == "" {
		c.Pins.Chip = def.Pins.Chip
	}
	if c.PWM.DutyMax == 0 {
		c.PWM.DutyMax = def.PWM.DutyMax
	}
	if c.ADC.BaudRate == 0 {
		c.ADC.BaudRate = def.ADC.BaudRate
	}
	if c.ADC.MaxAge == 0 {
		c.ADC.MaxAge = def.ADC.MaxAge
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
}

// Validate reports the first setting the controller cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Timer.Increment <= 0:
		return errors.New("timer.increment must be positive")
	case c.Timer.MaxTime < c.Timer.Increment:
		return fmt.Errorf("timer.max_time %v is below timer.increment %v", c.Timer.MaxTime, c.Timer.Increment)
	case c.Timer.Debounce < 0:
		return errors.New("timer.debounce must not be negative")
	case c.Speaker.RunningFreq <= 0 || c.Speaker.BeepFreq <= 0:
		return errors.New("speaker frequencies must be positive")
	case c.Speaker.RunningDuty < 0 || c.Speaker.RunningDuty > c.PWM.DutyMax:
		return fmt.Errorf("speaker.running_duty %d outside 0..%d", c.Speaker.RunningDuty, c.PWM.DutyMax)
	case c.Speaker.BeepDuty < 0 || c.Speaker.BeepDuty > c.PWM.DutyMax:
		return fmt.Errorf("speaker.beep_duty %d outside 0..%d", c.Speaker.BeepDuty, c.PWM.DutyMax)
	case c.Speaker.DoneBeeps < 0:
		return errors.New("speaker.done_beeps must not be negative")
	case c.Oven.IgnoreThreshold < 0:
		return errors.New("oven.ignore_threshold must not be negative")
	case c.Oven.MaxDuty > c.PWM.DutyMax:
		return fmt.Errorf("oven.max_duty %d exceeds pwm.duty_max %d", c.Oven.MaxDuty, c.PWM.DutyMax)
	case c.Schedule.Button <= 0 || c.Schedule.Display <= 0 || c.Schedule.Oven <= 0 ||
		c.Schedule.Blink <= 0 || c.Schedule.Status <= 0:
		return errors.New("schedule periods must be positive")
	case c.Schedule.Heartbeat < 0:
		return errors.New("schedule.heartbeat must not be negative")
	}
	return nil
}
