// Package config loads and saves the controller configuration: network,
// LED visuals, servo bus.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/intelliservenz/firecnc/internal/axis"
)

type Network struct {
	SerialDevice string `yaml:"serial_device"` // e.g. /dev/ttyUSB0
	SerialBaud   int    `yaml:"serial_baud"`   // 19200
	RTSPin       string `yaml:"rts_pin"`       // GPIO name for the RS-485 driver enable
	MQTTBroker   string `yaml:"mqtt_broker"`   // empty disables trap publication
	MQTTTopic    string `yaml:"mqtt_topic"`
	ListenAddr   string `yaml:"listen_addr"` // HTTP/WebSocket UI glue
}

type LEDs struct {
	YCount  int `yaml:"leds_y_count"`
	YYCount int `yaml:"leds_yy_count"`
	XCount  int `yaml:"leds_x_count"`

	DefaultBrightnessY  int `yaml:"default_brightness_y"`
	DefaultBrightnessYY int `yaml:"default_brightness_yy"`
	DefaultBrightnessX  int `yaml:"default_brightness_x"`

	AxisPositionDisplayLEDs int `yaml:"axis_position_display_leds"`
	ChaseSpeedMS            int `yaml:"chase_speed_ms"`
	FlashSpeedMS            int `yaml:"flash_speed_ms"`
	IdleDimPercent          int `yaml:"idle_dim_percent"`
	IdleTimeoutSeconds      int `yaml:"idle_timeout_seconds"`

	SPIDevY  string `yaml:"spi_dev_y"`
	SPIDevYY string `yaml:"spi_dev_yy"`
	SPIDevX  string `yaml:"spi_dev_x"`
}

type Servo struct {
	YSlaveID  int `yaml:"servoy_slave_id"`
	YYSlaveID int `yaml:"servoyy_slave_id"`
	XSlaveID  int `yaml:"servox_slave_id"`

	RailYLengthMM int `yaml:"rail_y_length_mm"`
	RailXLengthMM int `yaml:"rail_x_length_mm"`
}

type Config struct {
	Network Network `yaml:"network"`
	LEDs    LEDs    `yaml:"leds"`
	Servo   Servo   `yaml:"servo"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Network: Network{
			SerialDevice: "/dev/ttyUSB0",
			SerialBaud:   19200,
			MQTTTopic:    "firecnc/alerts",
			ListenAddr:   ":8080",
		},
		LEDs: LEDs{
			YCount:  100,
			YYCount: 100,
			XCount:  60,

			DefaultBrightnessY:  255,
			DefaultBrightnessYY: 255,
			DefaultBrightnessX:  255,

			AxisPositionDisplayLEDs: 2,
			ChaseSpeedMS:            50,
			FlashSpeedMS:            500,
			IdleDimPercent:          30,
			IdleTimeoutSeconds:      300,
		},
		Servo: Servo{
			YSlaveID:  1,
			YYSlaveID: 2,
			XSlaveID:  3,

			RailYLengthMM: 1000,
			RailXLengthMM: 600,
		},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// AxisConfigs resolves the per-axis setup. YY is the second motor on the
// Y gantry, so it shares rail_y_length_mm.
func (c *Config) AxisConfigs() [axis.Count]axis.Config {
	return [axis.Count]axis.Config{
		axis.Y: {
			Slave:      uint8(c.Servo.YSlaveID),
			RailLenMM:  c.Servo.RailYLengthMM,
			NumLEDs:    c.LEDs.YCount,
			Brightness: clampByte(c.LEDs.DefaultBrightnessY),
			WindowLEDs: c.LEDs.AxisPositionDisplayLEDs,
		},
		axis.YY: {
			Slave:      uint8(c.Servo.YYSlaveID),
			RailLenMM:  c.Servo.RailYLengthMM,
			NumLEDs:    c.LEDs.YYCount,
			Brightness: clampByte(c.LEDs.DefaultBrightnessYY),
			WindowLEDs: c.LEDs.AxisPositionDisplayLEDs,
		},
		axis.X: {
			Slave:      uint8(c.Servo.XSlaveID),
			RailLenMM:  c.Servo.RailXLengthMM,
			NumLEDs:    c.LEDs.XCount,
			Brightness: clampByte(c.LEDs.DefaultBrightnessX),
			WindowLEDs: c.LEDs.AxisPositionDisplayLEDs,
		},
	}
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
