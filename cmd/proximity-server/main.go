package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/proximity-go/server"
)

var args struct {
	ListenAddr string        `arg:"--listen-addr,-l" default:"127.0.0.1:8500" help:"Listen address"`
	Dsn        string        `arg:"--dsn,env:PROXIMITY_DSN" default:"host=localhost port=5438 user=proximity password=proximity dbname=proximity sslmode=disable binary_parameters=yes" help:"DSN for the database"`
	KeysDir    string        `arg:"--keys-dir" default:"." help:"Directory with *.tek and *.dp3t key files"`
	PruneAge   time.Duration `arg:"--prune-age" default:"10m" help:"Forget identifiers not seen for this long"`
	MaxSpan    time.Duration `arg:"--max-schedule-span" default:"24h" help:"Longest range served by the identifiers endpoint"`
	LogLevel   string        `arg:"--log-level" default:"info" help:"Log level"`
}
var logger = logrus.StandardLogger()

func main() {
	arg.MustParse(&args)
	setLogLevel(args.LogLevel)

	s, err := server.New(server.Config{
		DSN:             args.Dsn,
		KeysDir:         args.KeysDir,
		PruneAge:        args.PruneAge,
		MaxScheduleSpan: args.MaxSpan,
	})
	if err != nil {
		logger.Fatalf("failed to create server: %v", err)
	}

	httpServer := &http.Server{
		Addr:    args.ListenAddr,
		Handler: s.Handler(),
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Listening on %s", args.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("start server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("unable to shut down: %v", err)
	}
	s.Shutdown()
}

func setLogLevel(level string) {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Fatalf("failed to parse log level: %v", err)
	}
	logger.SetLevel(l)
}
