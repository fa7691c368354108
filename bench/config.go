// Package bench loads a description of the instruments on a test bench and
// opens text sessions to them over any of the message-based transports.
//
// A bench file is YAML or TOML, chosen by extension:
//
//	instruments:
//	  - name: psu
//	    transport: visa
//	    address: TCPIP0::192.168.1.20::5025::SOCKET
//	    timeout: 2s
//	  - name: gauge
//	    transport: serial
//	    address: /dev/ttyUSB0
//	    baud_rate: 9600
//	    terminator: "\r"
//	  - name: dmm
//	    transport: telnet
//	    address: 192.168.1.30
//	    port: 3490
package bench

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Transport names accepted in a bench file.
const (
	TransportSerial = "serial"
	TransportVISA   = "visa"
	TransportTelnet = "telnet"
	TransportSocket = "socket"
)

var transports = []string{TransportSerial, TransportVISA, TransportTelnet, TransportSocket}

// Config is a loaded bench description.
type Config struct {
	Instruments []Instrument
}

// Instrument describes how to reach one instrument. Zero values select the
// transport's defaults.
type Instrument struct {
	Name      string
	Transport string
	// Address is the serial device path, VISA resource name, telnet host or
	// websocket URL.
	Address      string
	Port         int
	BaudRate     int
	Terminator   []byte
	Timeout      time.Duration
	OpenAttempts int
	RetryDelay   time.Duration
}

// Lookup returns the instrument with the given name.
func (c *Config) Lookup(name string) (Instrument, bool) {
	for _, inst := range c.Instruments {
		if inst.Name == name {
			return inst, true
		}
	}

	return Instrument{}, false
}

type fileConfig struct {
	Instruments []fileInstrument `yaml:"instruments" toml:"instruments"`
}

type fileInstrument struct {
	Name         string `yaml:"name" toml:"name"`
	Transport    string `yaml:"transport" toml:"transport"`
	Address      string `yaml:"address" toml:"address"`
	Port         int    `yaml:"port" toml:"port"`
	BaudRate     int    `yaml:"baud_rate" toml:"baud_rate"`
	Terminator   string `yaml:"terminator" toml:"terminator"`
	Timeout      string `yaml:"timeout" toml:"timeout"`
	OpenAttempts int    `yaml:"open_attempts" toml:"open_attempts"`
	RetryDelay   string `yaml:"retry_delay" toml:"retry_delay"`
}

// Load reads a bench file. Files ending in .yaml or .yml are parsed as YAML
// and files ending in .toml as TOML. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	var raw fileConfig

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, transmission.ConfigErrorf("bench: %v", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return nil, transmission.ConfigErrorf("bench: decode %s: %v", path, err)
		}
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return nil, transmission.ConfigErrorf("bench: decode %s: %v", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, transmission.ConfigErrorf("bench: %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return nil, transmission.ConfigErrorf("bench: unsupported config extension %q", ext)
	}

	return raw.convert()
}

func (raw *fileConfig) convert() (*Config, error) {
	cfg := &Config{Instruments: make([]Instrument, 0, len(raw.Instruments))}
	seen := make(map[string]bool, len(raw.Instruments))

	for i, fi := range raw.Instruments {
		inst, err := fi.convert()
		if err != nil {
			return nil, transmission.ConfigErrorf("bench: instrument %d: %v", i, err)
		}
		if seen[inst.Name] {
			return nil, transmission.ConfigErrorf("bench: duplicate instrument name %q", inst.Name)
		}
		seen[inst.Name] = true

		cfg.Instruments = append(cfg.Instruments, inst)
	}

	return cfg, nil
}

func (fi *fileInstrument) convert() (Instrument, error) {
	inst := Instrument{
		Name:         strings.TrimSpace(fi.Name),
		Transport:    strings.ToLower(strings.TrimSpace(fi.Transport)),
		Address:      strings.TrimSpace(fi.Address),
		Port:         fi.Port,
		BaudRate:     fi.BaudRate,
		OpenAttempts: fi.OpenAttempts,
	}

	if inst.Name == "" {
		return Instrument{}, fmt.Errorf("missing name")
	}
	if !slices.Contains(transports, inst.Transport) {
		return Instrument{}, fmt.Errorf("%s: unknown transport %q", inst.Name, fi.Transport)
	}
	if inst.Address == "" {
		return Instrument{}, fmt.Errorf("%s: missing address", inst.Name)
	}
	if inst.Port < 0 || inst.Port > 65535 {
		return Instrument{}, fmt.Errorf("%s: invalid port %d", inst.Name, inst.Port)
	}
	if inst.BaudRate < 0 || inst.OpenAttempts < 0 {
		return Instrument{}, fmt.Errorf("%s: negative baud rate or open attempts", inst.Name)
	}

	var err error
	if fi.Terminator != "" {
		if inst.Terminator, err = ParseBytes(fi.Terminator); err != nil {
			return Instrument{}, fmt.Errorf("%s: terminator: %w", inst.Name, err)
		}
	}
	if inst.Timeout, err = parseDuration(fi.Timeout); err != nil {
		return Instrument{}, fmt.Errorf("%s: timeout: %w", inst.Name, err)
	}
	if inst.RetryDelay, err = parseDuration(fi.RetryDelay); err != nil {
		return Instrument{}, fmt.Errorf("%s: retry_delay: %w", inst.Name, err)
	}

	return inst, nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %v", d)
	}

	return d, nil
}

// ParseBytes parses a byte sequence written either as "hex:0705" or as text
// with Go escape sequences such as `\r\n` or `\x03`.
func ParseBytes(s string) ([]byte, error) {
	if h, ok := strings.CutPrefix(s, "hex:"); ok {
		b, err := hex.DecodeString(strings.ReplaceAll(h, " ", ""))
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("empty hex sequence")
		}

		return b, nil
	}

	if !strings.Contains(s, `\`) {
		return []byte(s), nil
	}

	unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return nil, fmt.Errorf("invalid escape in %q", s)
	}

	return []byte(unquoted), nil
}
