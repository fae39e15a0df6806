package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/stake-plus/getfunded/src/api/config"
	"github.com/stake-plus/getfunded/src/api/processor"
	"github.com/stake-plus/getfunded/src/api/webserver"
	"go.uber.org/zap"
)

var withProcessor bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&withProcessor, "with-processor", false, "Also run the agent processor in this process (manual mode)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	eng, err := a.engine()
	if err != nil {
		return err
	}
	disb, err := a.disburser(ctx)
	if err != nil {
		return err
	}

	router := webserver.New(webserver.Deps{
		Config:    a.cfg,
		Store:     a.store,
		Engine:    eng,
		Disburser: disb,
		Counter:   a.dailyCounter(),
		Events:    a.events,
		Log:       a.log,
	})
	httpSrv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var workers []func(context.Context)
	if withProcessor && a.cfg.AgentMode == config.AgentModeManual {
		proc := processor.New(a.store, eng, a.events, a.log, a.cfg.PollInterval)
		workers = append(workers, func(ctx context.Context) { _ = proc.Run(ctx) })
	}

	a.log.Info("getfunded API listening", zap.String("port", a.cfg.Port), zap.String("agentMode", a.cfg.AgentMode))
	return serveUntilDone(ctx, httpSrv, workers...)
}

// serveUntilDone runs srv and the workers until ctx ends or the listener
// fails, then shuts the server down and waits for every worker to return.
func serveUntilDone(ctx context.Context, srv *http.Server, workers ...func(context.Context)) error {
	wctx, stopWorkers := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w(wctx)
		}()
	}
	defer func() {
		stopWorkers()
		wg.Wait()
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
