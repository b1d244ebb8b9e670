// obecored is the main binary for the SDI ingest/encode pipeline: it
// loads a Config, wires up logging and the systemd watchdog, starts the
// frame pipeline, and runs until SIGINT or SIGTERM. No SDI/VANC capture
// collaborator is attached here, so nothing calls the pipeline's
// SubmitAudio or HandleSCTE104 from this binary.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/kernellabs/obecore/clock"
	"github.com/kernellabs/obecore/config"
	"github.com/kernellabs/obecore/pipeline"
)

const version = "v0.1.0"

// Logging configuration.
const (
	logPath      = "/var/log/obecore/obecore.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

const watchdogInterval = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "show version")
	configPath := flag.String("config", "/etc/obecore/config.json", "path to the pipeline config file")
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting obecored", "version", version)

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.Fatal("could not load config", "error", err.Error())
	}

	p, err := pipeline.New(cfg, log, mp2CodecFactory)
	if err != nil {
		log.Fatal("could not start pipeline", "error", err.Error())
	}
	defer p.Stop()

	watcher, err := config.Watch(*configPath, log, func(*config.Config) {
		log.Warning("config changed on disk; restart obecored to apply it")
	})
	if err != nil {
		log.Warning("could not start config watcher", "error", err.Error())
	} else {
		defer watcher.Close()
	}

	wd, err := clock.StartWatchdog(watchdogInterval)
	if err != nil {
		log.Warning("could not start systemd watchdog", "error", err.Error())
	} else {
		defer wd.Stop()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	log.Info("pipeline running")
	<-sig
	log.Info("shutting down")
}
