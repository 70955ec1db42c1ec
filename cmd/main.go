// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/iliafrenkel/go-share/src/metrics"
	"github.com/iliafrenkel/go-share/src/service"
	"github.com/iliafrenkel/go-share/src/store"
	"github.com/iliafrenkel/go-share/src/web"
	"github.com/jessevdk/go-flags"
)

// Version information, comes from the build flags (see Makefile)
var (
	version = `¯\_(ツ)_/¯`
)

type options struct {
	Timeouts struct {
		Shutdown  time.Duration `long:"shutdown" env:"SHUTDOWN" default:"10s" description:"server graceful shutdown timeout"`
		HTTPRead  time.Duration `long:"http-read" env:"HTTP_READ" default:"15s" description:"duration for reading the entire request"`
		HTTPWrite time.Duration `long:"http-write" env:"HTTP_WRITE" default:"15s" description:"duration before timing out writes of the response"`
		HTTPIdle  time.Duration `long:"http-idle" env:"HTTP_IDLE" default:"60s" description:"amount of time to wait for the next request"`
	} `group:"timeout" namespace:"timeout" env-namespace:"GOSHARE_TIMEOUT"`
	Web struct {
		Host        string `long:"host" env:"HOST" default:"localhost" description:"hostname part of the server address"`
		Port        uint16 `long:"port" env:"PORT" default:"8080" description:"port part of the server address"`
		LogFile     string `long:"log-file" env:"LOG_FILE" default:"" description:"full path to the access log file, default is stdout"`
		LogMode     string `long:"log-mode" env:"LOG_MODE" default:"production" choice:"debug" choice:"production" description:"log mode, can be 'debug' or 'production'"`
		MaxBodySize int64  `long:"max-body-size" env:"MAX_BODY_SIZE" default:"15728640" description:"maximum size for request's body"`
		NoMetrics   bool   `long:"no-metrics" env:"NO_METRICS" description:"do not expose /metrics"`
	} `group:"web" namespace:"web" env-namespace:"GOSHARE_WEB"`
	Store store.Options `group:"store" namespace:"store" env-namespace:"GOSHARE_STORE"`
	Debug bool          `long:"debug" env:"GOSHARE_DEBUG" description:"debug mode"`
}

var opts options

// redacted returns a copy of o with credentials masked, fit for logging.
func redacted(o options) options {
	mask := func(s string) string {
		if s == "" {
			return s
		}
		return "*****"
	}
	o.Store.S3.AccessKey = mask(o.Store.S3.AccessKey)
	o.Store.S3.SecretKey = mask(o.Store.S3.SecretKey)
	o.Store.SQL.Connection = mask(o.Store.SQL.Connection)
	return o
}

func main() {
	// Say hello
	fmt.Printf("go-share %s\n", version)

	// Parse the flags
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	p.NamespaceDelimiter = "-"
	p.EnvNamespaceDelimiter = "_"
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			fmt.Printf("[ERROR] cli error: %v", err)
		}
		os.Exit(2)
	}

	log := setupLog(opts.Debug)

	if opts.Debug {
		log.Logf("INFO Options: %+v", redacted(opts))
	}

	// Open the store
	st, err := store.New(context.Background(), opts.Store, log)
	if err != nil {
		log.Logf("FATAL failed to open %s store: %v", opts.Store.Type, err)
	}
	log.Logf("INFO using %s store", opts.Store.Type)

	var m *metrics.Metrics
	svcOpts := []service.Option{}
	if !opts.Web.NoMetrics {
		m = metrics.New()
		svcOpts = append(svcOpts, service.WithRecorder(m))
	}
	svc := service.New(st, svcOpts...)

	// Start the server
	webServer := web.New(log, svc, m, web.ServerOptions{
		Addr:         fmt.Sprintf("%s:%d", opts.Web.Host, opts.Web.Port),
		ReadTimeout:  opts.Timeouts.HTTPRead,
		WriteTimeout: opts.Timeouts.HTTPWrite,
		IdleTimeout:  opts.Timeouts.HTTPIdle,
		LogFile:      opts.Web.LogFile,
		LogMode:      opts.Web.LogMode,
		MaxBodySize:  opts.Web.MaxBodySize,
		Version:      version,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	errc := make(chan error, 1)

	go func() {
		log.Logf("INFO Web server listening on %s:%d", opts.Web.Host, opts.Web.Port)
		errc <- webServer.ListenAndServe()
	}()

	// Wait indefinitely for either one of the OS signals (SIGTERM or SIGINT)
	// or for the server to return an error.
	select {
	case <-quit:
		log.Logf("INFO Shutting down ...")
	case err := <-errc:
		log.Logf("ERROR Startup failed, exiting: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeouts.Shutdown)
	defer cancel()

	if err := webServer.Shutdown(ctx); err != nil {
		log.Logf("INFO \tWeb server forced to shutdown: %v", err)
	} else {
		log.Logf("INFO \tWeb server is down")
	}
	if err := st.Close(); err != nil {
		log.Logf("ERROR \tfailed to close the store: %v", err)
	} else {
		log.Logf("INFO \tStore is closed")
	}
	log.Logf("INFO Sayōnara!")
}

func setupLog(dbg bool) *lgr.Logger {
	if dbg {
		return lgr.New(lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces)
	}
	return lgr.New()
}
