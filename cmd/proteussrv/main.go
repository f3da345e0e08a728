package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "proteussrv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatal("error loading config", "err", err)
		}
	}
}

func loadconf() Config {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal("error decoding config", "err", err)
	}
	return c
}

func root() {
	str := `proteussrv synthesizes qubit control pulses and drives a Proteus arbitrary
waveform generator, exposing both over HTTP.

Usage:
	proteussrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `proteussrv is amenable to configuration via its .yml file, proteussrv.yml
in the working directory.  For a primer on YAML, see https://yaml.org/start.html

Use mkconf to write the defaults to proteussrv.yml and edit from there.

Mock: true replaces the instrument with an in-memory driver that records the
commands it is sent, which is useful to try the HTTP interface without hardware.

All routes are served under /<Endpoint>, GET /<Endpoint>/endpoints lists them.
Pulse families, POST /<Endpoint>/pulse/<family>:
	blank, sine, gaussian, drag, sine-envelope, trapezoid (rabi), readout

A POST to /<Endpoint>/lock with {"bool": true} rejects every non-GET request
with 423 Locked until unlocked.`
	fmt.Println(str)
}

func mkconf() {
	c := loadconf()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal("create config file", "err", err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal("encode config", "err", err)
	}
}

func printconf() {
	c := loadconf()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal("encode config", "err", err)
	}
}

func pversion() {
	fmt.Printf("proteussrv version %v\n", Version)
}

func run() {
	c := loadconf()
	logger, err := NewLogger(c)
	if err != nil {
		log.Fatal("log level", "err", err)
	}
	mux, inst, err := BuildMux(c, logger)
	if err != nil {
		logger.Fatal("startup failed", "err", err)
	}
	logger.Info("now listening for requests", "addr", c.Addr, "endpoint", c.Endpoint, "mock", c.Mock)
	err = http.ListenAndServe(c.Addr, mux)
	inst.Close()
	logger.Fatal(err)
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command", "cmd", cmd)
	}
}
