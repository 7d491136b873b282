package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jcooky/go-din"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	caresetu "github.com/saketkumarjha/caresetuAgent-3.0-sub000"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/config"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/httpapi"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/tracing"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caresetu [corpus-file OR corpus-files-dir ...]",
		Short: "Start the caresetu support agent server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var corpusFiles []string
			for _, filename := range args {
				if stat, err := os.Stat(filename); os.IsNotExist(err) {
					return errors.Wrapf(err, "corpus-file or corpus-files-dir does not exist")
				} else if stat.IsDir() {
					files, err := os.ReadDir(filename)
					if err != nil {
						return errors.Wrapf(err, "failed to read corpus-files-dir")
					}
					for _, file := range files {
						if file.IsDir() ||
							(!strings.HasSuffix(file.Name(), ".yaml") && !strings.HasSuffix(file.Name(), ".yml")) {
							continue
						}
						corpusFiles = append(corpusFiles, fmt.Sprintf("%s/%s", filename, file.Name()))
					}
				} else {
					corpusFiles = append(corpusFiles, filename)
				}
			}

			c := din.NewContainer(cmd.Context(), din.EnvProd)
			defer c.Close()

			cfg := din.MustGetT[*config.ServerConfig](c)
			logger := din.MustGet[*mylog.Logger](c, mylog.Key)
			agent := din.MustGetT[*caresetu.Agent](c)

			tracing.NewTracerProvider(logger, cfg.TraceVerbose)

			logger.Debug("start caresetu", "config", cfg)

			// load corpus files into the knowledge index
			for _, filename := range corpusFiles {
				f, err := os.Open(filename)
				if err != nil {
					return errors.Wrapf(err, "failed to open corpus file")
				}
				entries, err := knowledge.LoadYAMLCorpus(f, filename)
				_ = f.Close()
				if err != nil {
					return errors.Wrapf(err, "failed to load corpus file %s", filename)
				}
				if err := agent.IndexEntries(c, entries); err != nil {
					return err
				}
				logger.Info("Corpus loaded", "file", filename, "entries", len(entries))
			}

			lc := net.ListenConfig{}
			listener, err := lc.Listen(c, "tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
			if err != nil {
				return errors.Wrapf(err, "failed to listen on %s:%d", cfg.Host, cfg.Port)
			}

			logger.Info("Starting server", "host", cfg.Host, "port", cfg.Port)

			server := &http.Server{
				Handler:           httpapi.NewHandler(c),
				ReadHeaderTimeout: 10 * time.Second,
			}

			closeCh := make(chan os.Signal, 3)
			defer close(closeCh)
			signal.Notify(closeCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT)

			go func() {
				<-closeCh
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Warn("failed to shut down server", mylog.Err(err))
				}
			}()

			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "server stopped")
			}
			return nil
		},
	}

	return cmd
}
