package secure_channel

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	// The maximum number of concurrent sessions the session
	// manager will keep alive. If MaxSessions is -1, then we
	// allow unlimited number of sessions. Defaults to 1031.
	MaxSessions int `json:"MaxSessions" yaml:"MaxSessions"`

	// A session is removed once it has seen no activity for more
	// than TimeoutTicks sweeps. If TimeoutTicks is -1, then a
	// session never expires. Defaults to 15.
	TimeoutTicks int `json:"TimeoutTicks" yaml:"TimeoutTicks"`

	// Seconds between two sweeps. Defaults to 1.
	SweepInterval int `json:"SweepInterval" yaml:"SweepInterval"`

	// Name of the curve new sessions use for key agreement,
	// e.g., "brainpoolP256r1" or "X25519".
	Curve string `json:"Curve" yaml:"Curve"`

	// Modulus size of the RSA key handed out with the enclave
	// public key. Defaults to 3072.
	RSABits int `json:"RSABits" yaml:"RSABits"`

	// The file that contains the hex encoded master secret of the
	// trusted storage service. Wrapped keys are sealed under a key
	// derived from it. If empty, wrapped keys are refused.
	SealingKey string `json:"SealingKey" yaml:"SealingKey"`

	// Address the RPC server listens on, e.g., ":50051".
	Listen string `json:"Listen" yaml:"Listen"`

	// If non-zero, the RPC server listens on this AF_VSOCK port
	// instead of Listen.
	VsockPort uint32 `json:"VsockPort" yaml:"VsockPort"`
}

// Internal configuration used to create a session manager.
type configuration struct {
	maxSessions   int
	timeout       int
	sweepInterval time.Duration
	curve         CurveID
	rsaBits       int
	unsealer      Unsealer
}

// DefaultConfiguration returns the configuration used for every
// field a configuration file leaves out.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		MaxSessions:   MAX_SESSIONS,
		TimeoutTicks:  SESSION_TIMEOUT_TICKS,
		SweepInterval: 1,
		Curve:         DefaultCurve.String(),
		RSABits:       RSA_MODULUS_BITS,
		Listen:        ":50051",
	}
}

// ReadSealingKey reads a hex encoded master secret from fileName.
func ReadSealingKey(fileName string) ([]byte, error) {
	shex, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("could not read the sealing key: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(shex)))
	if err != nil {
		return nil, fmt.Errorf("could not parse the hex sealing key: %w", err)
	}
	return key, nil
}

func parseConfiguration(config *Configuration) (*configuration, error) {
	curve, err := ParseCurve(config.Curve)
	if err != nil {
		return nil, err
	}
	if !HasBackend(curve) {
		return nil, fmt.Errorf("%w: %v cannot be the session curve: %w", ErrUnsupportedCurve, curve, ErrNoBackend)
	}
	if config.MaxSessions == 0 || config.MaxSessions < -1 {
		return nil, fmt.Errorf("%w: MaxSessions must be positive or -1, got %d", ErrBadParameters, config.MaxSessions)
	}
	if config.TimeoutTicks == 0 || config.TimeoutTicks < -1 {
		return nil, fmt.Errorf("%w: TimeoutTicks must be positive or -1, got %d", ErrBadParameters, config.TimeoutTicks)
	}
	if config.SweepInterval <= 0 {
		return nil, fmt.Errorf("%w: SweepInterval must be positive, got %d", ErrBadParameters, config.SweepInterval)
	}
	if config.RSABits < 2048 {
		return nil, fmt.Errorf("%w: RSABits must be at least 2048, got %d", ErrBadParameters, config.RSABits)
	}

	conf := &configuration{
		maxSessions:   config.MaxSessions,
		timeout:       config.TimeoutTicks,
		sweepInterval: time.Duration(config.SweepInterval) * time.Second,
		curve:         curve,
		rsaBits:       config.RSABits,
	}

	if config.SealingKey != "" {
		master, err := ReadSealingKey(config.SealingKey)
		if err != nil {
			return nil, err
		}
		defer wipe(master)
		if conf.unsealer, err = NewGCMSealer(master); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// ReadConfiguration parses the configuration file (JSON, or YAML if
// the name ends in .yaml or .yml) on top of DefaultConfiguration,
// then applies the SC_* environment variables, including those set
// in a .env file in the working directory.
func ReadConfiguration(fileName string) (*Configuration, error) {
	config := DefaultConfiguration()

	if fileName != "" {
		data, err := os.ReadFile(fileName)
		if err != nil {
			return nil, fmt.Errorf("could not open configuration file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = json.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("could not decode the config file: %w", err)
		}
	}

	// a missing .env file is fine
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not load .env: %w", err)
	}
	if err := applyEnvironment(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnvironment(config *Configuration) error {
	ints := map[string]*int{
		"SC_MAX_SESSIONS":   &config.MaxSessions,
		"SC_TIMEOUT_TICKS":  &config.TimeoutTicks,
		"SC_SWEEP_INTERVAL": &config.SweepInterval,
		"SC_RSA_BITS":       &config.RSABits,
	}
	for name, field := range ints {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*field = n
	}

	strs := map[string]*string{
		"SC_CURVE":       &config.Curve,
		"SC_SEALING_KEY": &config.SealingKey,
		"SC_LISTEN":      &config.Listen,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("SC_VSOCK_PORT"); ok {
		port, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("SC_VSOCK_PORT: %w", err)
		}
		config.VsockPort = uint32(port)
	}
	return nil
}
