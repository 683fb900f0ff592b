// Command lapalign matches recorded 2D observations against a closed
// reference loop and reports per-frame lap progress.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/lapalign/internal/config"
	"github.com/banshee-data/lapalign/internal/db"
	"github.com/banshee-data/lapalign/internal/fsutil"
	"github.com/banshee-data/lapalign/internal/version"
)

var (
	pathFile    = flag.String("path", "", "Reference loop file (.json, .csv or .fit)")
	framesList  = flag.String("frames", "", "Comma-separated recording files (.csv or .fit)")
	configFile  = flag.String("config", "", "Tuning config JSON (defaults to built-in values)")
	envFile     = flag.String("env", ".env", "Optional .env file with LAPALIGN_* defaults")
	outDir      = flag.String("out", "", "Report output directory (env LAPALIGN_OUT)")
	dbPath      = flag.String("db", "", "SQLite database to store recordings in (env LAPALIGN_DB)")
	resample    = flag.Float64("resample", 0, "Resample the loop to this arc-length spacing (overrides config)")
	plots       = flag.Bool("plots", false, "Write PNG plots")
	html        = flag.Bool("html", false, "Write an interactive HTML report")
	parquetOut  = flag.Bool("parquet", false, "Write per-recording Parquet samples")
	metricsFile = flag.String("metrics", "", "Write Prometheus textfile metrics to this path")
	parallel    = flag.Int("parallel", 0, "Recordings analysed concurrently (0 = unlimited, env LAPALIGN_PARALLEL)")
	listOnly    = flag.Bool("list", false, "List recordings stored in -db and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("failed to load %s: %v", *envFile, err)
	}

	opts := options{
		PathFile:    *pathFile,
		FrameFiles:  splitList(*framesList),
		ConfigFile:  firstNonEmpty(*configFile, config.GetEnv(config.EnvConfigPath, "")),
		OutDir:      firstNonEmpty(*outDir, config.GetEnv(config.EnvOutputDir, "")),
		DBPath:      firstNonEmpty(*dbPath, config.GetEnv(config.EnvDBPath, "")),
		Resample:    *resample,
		Plots:       *plots,
		HTML:        *html,
		Parquet:     *parquetOut,
		MetricsFile: *metricsFile,
		Parallel:    *parallel,
	}
	if opts.Parallel == 0 {
		opts.Parallel = config.GetEnvInt(config.EnvParallel, 0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flag.NArg() > 0 {
		if flag.Arg(0) != "migrate" {
			log.Fatalf("unknown command %q", flag.Arg(0))
		}
		if err := db.RunMigrateCommand(flag.Args()[1:], opts.DBPath, os.Stdout); err != nil {
			log.Fatalf("migrate failed: %v", err)
		}
		return
	}

	if *listOnly {
		if err := listRecordings(ctx, os.Stdout, opts.DBPath); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		return
	}

	if err := opts.validate(); err != nil {
		log.Fatalf("invalid arguments: %v", err)
	}
	if err := run(ctx, fsutil.OSFileSystem{}, opts, os.Stdout); err != nil {
		log.Fatalf("lapalign failed: %v", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
