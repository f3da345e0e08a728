package main

import (
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"

	"github.com/qctl/proteus/comm"
	"github.com/qctl/proteus/generichttp"
	"github.com/qctl/proteus/proteus"
	"github.com/qctl/proteus/scpi"
	"github.com/qctl/proteus/server/middleware/locker"
	"github.com/qctl/proteus/waveform"
)

// InstrumentSetup holds the connection parameters of the generator
type InstrumentSetup struct {
	// Addr holds the network or filesystem address of the instrument,
	// e.g. 192.168.0.3:5025, or /dev/ttyUSB0 for a serial link
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Serial determines if the connection is serial/RS232 (True) or TCP (False)
	Serial bool `yaml:"Serial" koanf:"Serial"`

	// Baud is only used for serial links
	Baud int `yaml:"Baud" koanf:"Baud"`

	// Handshaking queries the error queue after every command
	Handshaking bool `yaml:"Handshaking" koanf:"Handshaking"`

	// PoolSize is the maximum number of concurrent connections
	PoolSize int `yaml:"PoolSize" koanf:"PoolSize"`

	// Timeout bounds every exchange with the instrument
	Timeout time.Duration `yaml:"Timeout" koanf:"Timeout"`
}

// Target converts the setup into a comm.Target
func (s InstrumentSetup) Target() comm.Target {
	return comm.Target{Addr: s.Addr, Serial: s.Serial, Baud: s.Baud, DialTimeout: s.Timeout}
}

// Config is a struct that holds the initialization parameters of the server.
// It is populated by koanf from defaults and proteussrv.yml.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Endpoint is the URL stem the routes are served under, e.g. "awg"
	// produces /awg/idn, /awg/pulse/{family}, ...
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	// Mock replaces the instrument with an in-memory driver
	Mock bool `yaml:"Mock" koanf:"Mock"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"LogLevel" koanf:"LogLevel"`

	// InitOnStart resets the instrument and initializes Channel at startup
	InitOnStart bool `yaml:"InitOnStart" koanf:"InitOnStart"`

	// Channel is the channel initialized by InitOnStart
	Channel int `yaml:"Channel" koanf:"Channel"`

	Sampling waveform.SamplingContext `yaml:"Sampling" koanf:"Sampling"`

	Instrument InstrumentSetup `yaml:"Instrument" koanf:"Instrument"`
}

// DefaultConfig is loaded before the configuration file
func DefaultConfig() Config {
	return Config{
		Addr:     ":8000",
		Endpoint: "awg",
		LogLevel: "info",
		Channel:  1,
		Sampling: waveform.SamplingContext{SampleRate: 2.5e9, Interpolation: 1},
		Instrument: InstrumentSetup{
			Addr:     "192.168.0.3:5025",
			PoolSize: 1,
			Timeout:  5 * time.Second,
		},
	}
}

// NewLogger returns a charm logger at the configured level
func NewLogger(c Config) (*log.Logger, error) {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "proteussrv"})
	logger.SetLevel(lvl)
	return logger, nil
}

// Dial returns the driver described by the config
func Dial(c Config) proteus.Driver {
	if c.Mock {
		return proteus.NewMock()
	}
	s := c.Instrument
	pool := comm.NewPool(s.PoolSize, time.Minute, s.Target().Maker())
	return &scpi.SCPI{Pool: pool, Handshaking: s.Handshaking, Timeout: s.Timeout}
}

// BuildMux connects to the instrument and constructs a chi router with the
// instrument's routes mounted at the configured endpoint behind a lock
func BuildMux(c Config, logger *log.Logger) (chi.Router, *proteus.Instrument, error) {
	ctx, err := waveform.NewSamplingContext(c.Sampling.SampleRate, c.Sampling.Interpolation)
	if err != nil {
		return nil, nil, errors.Wrap(err, "sampling configuration")
	}
	inst, err := proteus.Connect(Dial(c))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect")
	}
	inst.Logger = logger
	if c.InitOnStart {
		if err = inst.InitChannel(c.Channel, ctx); err != nil {
			inst.Close()
			return nil, nil, errors.Wrap(err, "initialize channel")
		}
	}

	syn := waveform.Synthesizer{Ctx: ctx, Sink: waveform.LogSink{Logger: logger}}
	httper := proteus.NewHTTPWrapper(inst, syn)

	lock := locker.New()
	locker.Inject(httper, lock)

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	r := chi.NewRouter()
	r.Use(lock.Check)
	httper.RT().Bind(r)
	root.Mount(generichttp.SubMuxSanitize(c.Endpoint), r)
	root.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return root, inst, nil
}
