// Command stature estimates a person's height, build and weight from pose
// landmarks, smoothing the estimates over recent frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/stature/internal/api"
	"github.com/banshee-data/stature/internal/config"
	"github.com/banshee-data/stature/internal/db"
	"github.com/banshee-data/stature/internal/display"
	"github.com/banshee-data/stature/internal/measure"
	"github.com/banshee-data/stature/internal/monitoring"
	"github.com/banshee-data/stature/internal/pose"
	"github.com/banshee-data/stature/internal/report"
	"github.com/banshee-data/stature/internal/security"
	"github.com/banshee-data/stature/internal/session"
	"github.com/banshee-data/stature/internal/source"
	"github.com/banshee-data/stature/internal/units"
	"github.com/banshee-data/stature/internal/version"
)

var (
	videoPath   = flag.String("video", "", "Input: image file, directory of frames, or landmark .jsonl recording (default: landmark stream on stdin)")
	configPath  = flag.String("config", "", "Path to a JSON config file (default: built-in defaults)")
	dbPath      = flag.String("db", "", "Record the session to this sqlite database")
	listen      = flag.String("listen", "", "Serve the HTTP API on this address, e.g. :8080")
	modelPath   = flag.String("model", "", "BlazePose landmark .onnx model, required for image input")
	ortLibPath  = flag.String("onnxruntime", "", "Path to the onnxruntime shared library")
	plotPath    = flag.String("plot", "", "Write a PNG chart of the smoothed estimates to this file, or into this directory")
	unitsFlag   = flag.String("units", "", "Display units: "+units.GetValidSystemsString()+" (overrides config)")
	quiet       = flag.Bool("quiet", false, "Do not print per-frame readouts")
	debug       = flag.Bool("debug", false, "Log per-frame timings")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

const envPrefix = "STATURE_"

// applyEnvDefaults sets every flag that has a STATURE_<NAME> variable in the
// environment. Flags given on the command line still win because Parse runs
// afterwards.
func applyEnvDefaults(fs *flag.FlagSet, lookup func(string) (string, bool)) error {
	var errs []error
	fs.VisitAll(func(f *flag.Flag) {
		key := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := lookup(key); ok {
			if err := f.Value.Set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	})
	return errors.Join(errs...)
}

type options struct {
	Video      string
	ConfigPath string
	DBPath     string
	Listen     string
	ModelPath  string
	ORTLibPath string
	PlotPath   string
	Units      string
	Quiet      bool
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if opts.Units != "" {
		u := opts.Units
		cfg.Units = &u
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// run processes one input to completion. When an HTTP address is given it
// keeps serving after the input ends, until ctx is cancelled.
func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	system := cfg.GetUnits()
	params := measure.ParamsFromConfig(cfg)
	thresholds := display.ThresholdsFromConfig(cfg)

	var detector pose.Detector
	if opts.ModelPath != "" {
		if err := pose.InitRuntime(opts.ORTLibPath); err != nil {
			return err
		}
		defer pose.DestroyRuntime()

		d, err := pose.NewONNXDetector(opts.ModelPath, cfg.GetMinDetectionConfidence())
		if err != nil {
			return fmt.Errorf("load pose model: %w", err)
		}
		defer d.Close()
		detector = d
	}

	src, err := source.Open(opts.Video, stdin)
	if err != nil {
		return err
	}

	sess := session.New(session.Options{
		Source:     src.Name(),
		Capacity:   cfg.GetBufferCapacity(),
		Params:     &params,
		Thresholds: thresholds,
		Detector:   detector,
	})
	log.Printf("session %s: reading %s (window %d frames)", sess.ID(), src.Name(), sess.Capacity())

	if !opts.Quiet {
		sess.AddSink(session.PrinterSink{W: stdout, System: system})
	}

	var trace *report.Trace
	if opts.PlotPath != "" {
		trace = report.NewTrace(sess.ID())
		sess.AddSink(trace)
	}

	var database *db.DB
	if opts.DBPath != "" {
		database, err = db.NewDB(opts.DBPath)
		if err != nil {
			src.Close()
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		store, err := database.OpenSessionStore(db.SessionRecord{
			ID:        sess.ID(),
			Source:    sess.Source(),
			Capacity:  sess.Capacity(),
			StartedAt: sess.StartedAt(),
		})
		if err != nil {
			src.Close()
			return err
		}
		sess.AddSink(store)
		defer func() {
			if err := store.Finish(time.Now()); err != nil {
				log.Printf("failed to finish session record: %v", err)
			}
		}()
	}

	var wg sync.WaitGroup
	serverCtx, stopServer := context.WithCancel(ctx)
	defer func() {
		stopServer()
		wg.Wait()
	}()
	if opts.Listen != "" {
		handler := api.NewServer(api.Options{
			DB:         database,
			Live:       sess,
			Detector:   detector,
			Params:     params,
			Thresholds: thresholds,
			Units:      system,
		}).Router()
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(serverCtx, opts.Listen, handler)
		}()
	}

	final, err := sess.Run(ctx, src)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("session %s: %w", sess.ID(), err)
	}
	log.Printf("session %s: processed %d frames", sess.ID(), sess.Frames())

	if lines := final.Lines(system); len(lines) > 0 {
		fmt.Fprintln(stdout, "Final estimate:")
		for _, l := range lines {
			fmt.Fprintln(stdout, "  "+l)
		}
	} else {
		fmt.Fprintln(stdout, "No height could be estimated.")
	}

	if trace != nil {
		path, err := plotOutputPath(opts.PlotPath, src.Name())
		if err == nil {
			err = report.WritePNG(path, trace, thresholds)
		}
		if err != nil {
			log.Printf("failed to write plot: %v", err)
		} else {
			log.Printf("wrote %s", path)
		}
	}

	if opts.Listen != "" && ctx.Err() == nil {
		log.Printf("input finished; serving on %s until interrupted", opts.Listen)
		<-ctx.Done()
	}
	return nil
}

// plotOutputPath returns where the chart goes. A plot path naming an
// existing directory gets a file named after the input inside it.
func plotOutputPath(plotPath, sourceName string) (string, error) {
	info, err := os.Stat(plotPath)
	if err != nil || !info.IsDir() {
		return plotPath, nil
	}
	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	path := filepath.Join(plotPath, "stature-"+security.SanitizeFilename(base)+".png")
	if err := security.ValidatePathWithinDirectory(path, plotPath); err != nil {
		return "", err
	}
	return path, nil
}

func serveHTTP(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}
	if err := applyEnvDefaults(flag.CommandLine, os.LookupEnv); err != nil {
		log.Fatalf("invalid environment: %v", err)
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetDebug(*debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		Video:      *videoPath,
		ConfigPath: *configPath,
		DBPath:     *dbPath,
		Listen:     *listen,
		ModelPath:  *modelPath,
		ORTLibPath: *ortLibPath,
		PlotPath:   *plotPath,
		Units:      *unitsFlag,
		Quiet:      *quiet,
	}
	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("Graceful shutdown complete")
}
