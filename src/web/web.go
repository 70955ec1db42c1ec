// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

// Package web implements a JSON API server that exposes the share service
// over HTTP.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/iliafrenkel/go-share/src/metrics"
	"github.com/iliafrenkel/go-share/src/service"
)

// ServerOptions defines various parameters needed to run the Server
type ServerOptions struct {
	Addr         string        // address to listen on, see http.Server docs for details
	ReadTimeout  time.Duration // maximum duration for reading the entire request.
	WriteTimeout time.Duration // maximum duration before timing out writes of the response
	IdleTimeout  time.Duration // maximum amount of time to wait for the next request
	LogFile      string        // if not empty, will write access logs to the file
	LogMode      string        // can be either "debug" or "production"
	MaxBodySize  int64         // maximum size for request's body
	Version      string        // app version, comes from build
}

// Server encapsulates a router and a server.
// Normally, you'd create a new instance by calling New which configures the
// rotuer and then call ListenAndServe to start serving incoming requests.
type Server struct {
	router  *mux.Router
	handler http.Handler
	server  *http.Server
	options ServerOptions
	log     lgr.L
	service *service.Service
	metrics *metrics.Metrics
}

var dbgLogFormatter handlers.LogFormatter = func(writer io.Writer, params handlers.LogFormatterParams) {
	const (
		green   = "\033[97;42m"
		white   = "\033[90;47m"
		yellow  = "\033[90;43m"
		red     = "\033[97;41m"
		blue    = "\033[97;44m"
		magenta = "\033[97;45m"
		cyan    = "\033[97;46m"
		reset   = "\033[0m"
	)

	code := params.StatusCode
	cclr := ""
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		cclr = green
	case code >= http.StatusMultipleChoices && code < http.StatusBadRequest:
		cclr = white
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError:
		cclr = yellow
	default:
		cclr = red
	}

	method := params.Request.Method
	mclr := ""
	switch method {
	case http.MethodGet:
		mclr = blue
	case http.MethodPost:
		mclr = cyan
	case http.MethodPut:
		mclr = yellow
	case http.MethodDelete:
		mclr = red
	case http.MethodHead:
		mclr = magenta
	default:
		mclr = reset
	}

	host, _, err := net.SplitHostPort(params.Request.RemoteAddr)
	if err != nil {
		host = params.Request.RemoteAddr
	}

	fmt.Fprintf(writer, "|%s %3d %s| %15s |%s %-7s %s| %8d | %s \n",
		cclr, code, reset,
		host,
		mclr, method, reset,
		params.Size,
		params.URL.RequestURI(),
	)
}

// ListenAndServe starts an HTTP server and binds it to the provided address.
// You have to call New() first to initialise the Server.
func (h *Server) ListenAndServe() error {
	var hdlr http.Handler
	var w io.Writer
	var err error
	if h.options.LogFile == "" {
		w = lgr.ToWriter(h.log, "")
	} else {
		w, err = os.OpenFile(h.options.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("Server.ListenAndServe: cannot open log file: [%s]: %w", h.options.LogFile, err)
		}
	}
	if h.options.LogMode == "debug" {
		hdlr = handlers.CustomLoggingHandler(w, h.handler, dbgLogFormatter)
	} else {
		hdlr = handlers.CombinedLoggingHandler(w, h.handler)
	}
	h.server = &http.Server{
		Addr:              h.options.Addr,
		WriteTimeout:      h.options.WriteTimeout,
		ReadTimeout:       h.options.ReadTimeout,
		ReadHeaderTimeout: h.options.ReadTimeout,
		IdleTimeout:       h.options.IdleTimeout,
		Handler:           hdlr,
	}

	return h.server.ListenAndServe()
}

// Shutdown gracefully shutdown the server with the given context.
func (h *Server) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// New returns an instance of the Server with initialised middleware and
// routes. Metrics are optional, when m is nil the /metrics route is not
// registered. You can call ListenAndServe on a newly created instance to
// initialise the HTTP server and start handling incoming requests.
func New(l lgr.L, svc *service.Service, m *metrics.Metrics, opts ServerOptions) *Server {
	if l == nil {
		l = lgr.NoOp
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}

	var handler Server
	handler.log = l
	handler.options = opts
	handler.service = svc
	handler.metrics = m

	// Initialise the router
	handler.router = mux.NewRouter()
	if m != nil {
		handler.router.Use(m.Middleware)
		handler.router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	// Define routes
	handler.router.HandleFunc("/shares/code", handler.handlePostCodeShare).Methods(http.MethodPost)
	handler.router.HandleFunc("/shares/code", handler.handleGetCodeShare).Methods(http.MethodGet)
	handler.router.HandleFunc("/shares/code", handler.handlePutCodeShare).Methods(http.MethodPut)
	handler.router.HandleFunc("/shares/code", handler.handleDeleteCodeShare).Methods(http.MethodDelete)
	handler.router.HandleFunc("/shares/code/auth", handler.handleAuthCodeShare).Methods(http.MethodPost)
	handler.router.HandleFunc("/shares/file", handler.handlePostFileShare).Methods(http.MethodPost)
	handler.router.HandleFunc("/shares/file", handler.handleGetFileShare).Methods(http.MethodGet)
	handler.router.HandleFunc("/shares/file", handler.handlePutFileShare).Methods(http.MethodPut)
	handler.router.HandleFunc("/shares/file", handler.handleDeleteFileShare).Methods(http.MethodDelete)
	handler.router.HandleFunc("/shares/file/download", handler.handleDownloadFile).Methods(http.MethodGet)
	handler.router.HandleFunc("/slug-availability", handler.handleSlugAvailability).Methods(http.MethodGet)

	// Common error routes
	handler.router.NotFoundHandler = http.HandlerFunc(handler.notFound)
	handler.router.MethodNotAllowedHandler = http.HandlerFunc(handler.methodNotAllowed)

	// Middleware that has to see every request, matched or not
	handler.handler = rest.Recoverer(l)(
		rest.AppInfo("go-share", "Ilia Frenkel", opts.Version)(
			rest.Ping(handler.router),
		),
	)

	return &handler
}
