package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/analytics"
	"chatlytics-server/pkg/config"
	"chatlytics-server/pkg/metrics"
	"chatlytics-server/pkg/model"
)

var logger = logrus.New()

func main() {
	jsonOut := flag.Bool("json", false, "emit the full analysis result as JSON instead of a text report")
	workers := flag.Int("workers", runtime.NumCPU(), "parallel workers for directory mode")
	metricsAddr := flag.String("metrics", "", "listen address for a Prometheus /metrics endpoint (e.g. :9090)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] <conversation.json | directory>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load(logger)
	logger.SetLevel(cfg.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	metrics.Init(logger)
	if *metricsAddr != "" {
		serveMetrics(*metricsAddr)
	}

	path := flag.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		logger.WithError(err).Fatal("Cannot open input path")
	}

	if info.IsDir() {
		if err := analyzeDirectory(cfg, path, *workers, *jsonOut); err != nil {
			logger.WithError(err).Fatal("Batch analysis failed")
		}
		return
	}

	engine := analytics.NewEngine(cfg, logger)
	if err := analyzeFile(engine, path, *jsonOut, os.Stdout); err != nil {
		logger.WithError(err).Fatal("Analysis failed")
	}
}

// serveMetrics exposes the Prometheus registry in the background for long
// batch runs. Errors are logged, not fatal; a dead metrics endpoint should
// never stop an analysis.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	metrics.RegisterHandler(mux)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.WithError(err).WithField("addr", addr).Error("Metrics endpoint failed")
		}
	}()
	logger.WithField("addr", addr).Info("Serving Prometheus metrics")
}

func analyzeFile(engine *analytics.Engine, path string, jsonOut bool, out *os.File) error {
	conv, err := loadConversation(path)
	if err != nil {
		return err
	}

	result, err := engine.Analyze(context.Background(), conv)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Map())
	}
	return analytics.WriteTextReport(out, result)
}

// analyzeDirectory runs every *.json conversation in the directory through
// its own worker. Conversations are independent, but remote clients are not
// shared, so each worker gets its own engine.
func analyzeDirectory(cfg *config.Config, dir string, workers int, jsonOut bool) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	paths = filterInputs(paths)
	if len(paths) == 0 {
		return fmt.Errorf("no *.json files in %s", dir)
	}
	sort.Strings(paths)

	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine := analytics.NewEngine(cfg, logger)
			for path := range jobs {
				if err := analyzeToFile(engine, path, jsonOut); err != nil {
					logger.WithError(err).WithField("file", path).Error("Analysis failed")
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	for _, p := range paths {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	logger.WithFields(logrus.Fields{
		"total":  len(paths),
		"failed": failed,
	}).Info("Batch analysis complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d conversations failed", failed, len(paths))
	}
	return nil
}

func analyzeToFile(engine *analytics.Engine, path string, jsonOut bool) error {
	ext := ".report.txt"
	if jsonOut {
		ext = ".report.json"
	}
	outPath := trimJSONExt(path) + ext

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return analyzeFile(engine, path, jsonOut, out)
}

func trimJSONExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

// filterInputs drops reports a previous run wrote into the same directory so
// a rerun never analyzes its own output.
func filterInputs(paths []string) []string {
	inputs := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, ".report.json") {
			continue
		}
		inputs = append(inputs, p)
	}
	return inputs
}

func loadConversation(path string) (*model.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if conv.ID == "" {
		conv.ID = filepath.Base(trimJSONExt(path))
	}
	return &conv, nil
}
