// Command cpdlcd is the CPDLC broker daemon: a
// `cpdlcd [-h] [-d] [-e [-s]] [-c conffile]` CLI in which -e installs the
// OS service via takama/daemon and -s (with -e) also starts it, plus SIGHUP
// reopening the sqlite message log for log rotation. There is no stop or
// status command, and no flag encrypts credentials.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/takama/daemon"

	"github.com/openatc/cpdlcd/broker"
	"github.com/openatc/cpdlcd/internal/config"
)

const (
	serviceName        = "cpdlcd"
	serviceDescription = "CPDLC broker daemon"
)

func main() {
	var (
		help       = flag.Bool("h", false, "print usage and exit")
		foreground = flag.Bool("d", false, "run in the foreground instead of managing the OS service")
		install    = flag.Bool("e", false, "install (enable) the OS service")
		start      = flag.Bool("s", false, "with -e, also start the service immediately")
		confPath   = flag.String("c", "/etc/cpdlcd.conf", "path to the configuration file")
	)
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	log := logrus.NewEntry(logrus.StandardLogger())

	svc, err := daemon.New(serviceName, serviceDescription, daemon.SystemDaemon)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize service descriptor")
	}

	if *install {
		msg, err := svc.Install("-d", "-c", *confPath)
		if err != nil {
			log.WithError(err).Fatal("service install failed")
		}
		fmt.Println(msg)
		if *start {
			if msg, err := svc.Start(); err != nil {
				log.WithError(err).Fatal("service start failed")
			} else {
				fmt.Println(msg)
			}
		}
		return
	}

	// -d (explicit foreground) and plain invocation both run the broker
	// directly: the OS service manager execs this same binary with -d (see
	// the Install call above), so -d only changes how startup is logged.
	if *foreground {
		log = log.WithField("mode", "foreground")
	}

	cfg, err := config.Load(*confPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	b, err := broker.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize broker")
	}

	if addr := cfg.String("metrics/listen", ""); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(b.Gatherer(), promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.WithError(err).Warn("metrics listener exited")
			}
		}()
		log.WithField("addr", addr).Info("serving /metrics")
	}

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			if err := b.ReopenMsgLog(); err != nil {
				log.WithError(err).Warn("failed to reopen message log")
			} else {
				log.Info("message log reopened")
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("conf", *confPath).Info("starting cpdlcd")
	if err := b.Run(ctx); err != nil {
		log.WithError(err).Fatal("broker exited with error")
	}
}
