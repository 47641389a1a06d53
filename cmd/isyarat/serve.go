package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ayusman/isyarat/internal/app"
	"github.com/ayusman/isyarat/internal/server"
	"github.com/ayusman/isyarat/internal/store"
)

var (
	serveAddr     string
	serveNoCamera bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the practice web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoCamera, "no-camera", false, "do not open the local camera; frames arrive over the websocket")
	rootCmd.AddCommand(serveCmd)
}

// openApp opens the store and builds the application from cfg.
func openApp(reg prometheus.Registerer) (*store.Store, *app.App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("initialize store: %w", err)
	}

	a, err := app.New(app.Config{
		Store:        st,
		CameraID:     cfg.CameraID,
		MotionThresh: cfg.MotionThreshold,
		LabelsPath:   cfg.LabelsPath,
		Detector:     cfg.Detector,
		Registerer:   reg,
		WholeWords:   cfg.WholeWords,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	if err := a.LoadSigns(); err != nil {
		log.Printf("Failed to load signs: %v", err)
	}
	return st, a, nil
}

func serve(ctx context.Context) error {
	st, a, err := openApp(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer st.Close()
	defer a.Close()

	if !serveNoCamera {
		if err := a.Start(); err != nil {
			log.Printf("Camera unavailable (%v), waiting for websocket frames", err)
		}
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Printf("Serving static files from: %s", staticDir)
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(server.Config{
			StaticDir: staticDir,
			Store:     st,
			App:       a,
		}),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("Server stopped")
	return nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and the data directory.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(cfg.DataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
