// hmmserve serves aggregated HMM experiment results as JSON and charts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	_ "github.com/carbocation/hmmdash/compileinfoprint"
	"github.com/carbocation/hmmdash/pipeline"
	"github.com/carbocation/hmmdash/source"
)

var global *Global

func main() {
	errors := make(chan error, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig,
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGHUP,
		syscall.SIGUSR1,
	)

	var configPath, sources, policy string
	var port int
	var mergeAll, anonymous bool
	var timeout time.Duration
	flag.StringVar(&configPath, "config", "", "(Optional) YAML file describing the sources of the dashboard. Either --config or --sources must be set.")
	flag.StringVar(&sources, "sources", "", "(Optional) Comma-separated result tables. Each may be a local path, an http(s) URL or a gs:// URL. All are required.")
	flag.BoolVar(&mergeAll, "merge", false, "(Optional) With --sources, merge every table after the first into the first.")
	flag.StringVar(&policy, "policy", "", "(Optional) Merge collision policy: last_writer_wins (default) or fill_gaps. Overrides the config file.")
	flag.BoolVar(&anonymous, "anonymous", false, "(Optional) Read gs:// sources without credentials. Only works for public buckets.")
	flag.DurationVar(&timeout, "timeout", source.DefaultTimeout, "Timeout for each http(s) fetch.")
	flag.IntVar(&port, "port", 9019, "Port for HTTP server")
	flag.Parse()

	if configPath == "" && sources == "" {
		flag.PrintDefaults()
		return
	}

	cfg, err := buildConfig(configPath, sources, mergeAll, policy)
	if err != nil {
		log.Fatalln(err)
	}

	opener := &source.Opener{HTTP: &http.Client{Timeout: timeout}}
	paths := make([]string, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		paths = append(paths, src.Path)
	}
	if source.NeedsStorage(paths...) {
		opener.Storage, err = source.NewStorageClient(context.Background(), anonymous)
		if err != nil {
			log.Fatalln(err)
		}
	}

	global = &Global{
		Site:    "HMM Dashboard",
		log:     log.New(os.Stderr, log.Prefix(), log.Ldate|log.Ltime),
		fetcher: opener,
		config:  cfg,
	}

	global.log.Println("Launching", global.Site)

	if err := global.Reload(context.Background()); err != nil {
		log.Fatalln(err)
	}

	go func() {
		global.log.Println("Starting HTTP server on port", port)
		if err := http.ListenAndServe(fmt.Sprintf(`:%d`, port), router(global)); err != nil {
			errors <- err
			global.log.Println(err)
			sig <- syscall.SIGTERM
			return
		}
	}()

Outer:
	for {
		select {
		case sigl := <-sig:

			if sigl == syscall.SIGUSR1 {
				SigStatus()
				continue
			}

			if sigl == syscall.SIGHUP {
				if err := global.Reload(context.Background()); err != nil {
					global.log.Println("Reload failed, keeping the current data:", err)
				}
				continue
			}

			// By default, exit
			global.log.Printf("\nExit: %s\n", sigl.String())

			break Outer

		case err := <-errors:
			if err == nil {
				global.log.Println("Finished")
				break Outer
			}

			// Return a status code indicating failure
			global.log.Println("Exiting due to error", err)
			os.Exit(1)
		}
	}
}

func buildConfig(configPath, sources string, mergeAll bool, policy string) (pipeline.Config, error) {
	var cfg pipeline.Config
	var err error

	if configPath != "" {
		cfg, err = pipeline.ReadConfig(configPath)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = pipeline.FromPaths(strings.Split(sources, ",")...)
		if mergeAll {
			for i := range cfg.Sources[1:] {
				cfg.Sources[i+1].Merge = true
			}
		}
	}

	if policy != "" {
		cfg.MergePolicy = policy
	}

	return cfg, cfg.Validate()
}

func SigStatus() {
	global.log.Println("There are", runtime.NumGoroutine(), "goroutines running")
	if snap := global.Snapshot(); snap != nil {
		global.log.Println("Serving", snap.Datasets(), "loaded at", snap.LoadedAt())
	}
}
