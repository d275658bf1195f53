// Command dataflow downloads daily bars from the configured data source into
// the CSV layout read by the csv source.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/CortexQuant/config"
	"github.com/dyike/CortexQuant/internal/logger"
	"github.com/dyike/CortexQuant/pkg/dataflows"
)

func main() {
	var (
		symbol = flag.String("symbol", "AAPL", "symbol to download")
		start  = flag.String("start", time.Now().AddDate(-1, 0, 0).Format("2006-01-02"), "first date")
		end    = flag.String("end", time.Now().Format("2006-01-02"), "last date")
		source = flag.String("source", "", "data source override")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	if *source != "" {
		cfg.DataSource = *source
	}
	log := logger.New(cfg)

	from, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid start")
	}
	to, err := time.Parse("2006-01-02", *end)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid end")
	}

	src, err := dataflows.NewBarSource(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("data source")
	}

	bars, err := src.Bars(context.Background(), *symbol, from, to)
	if err != nil {
		log.Fatal().Err(err).Str("symbol", *symbol).Msg("download bars")
	}

	if err := os.MkdirAll(cfg.CSVDataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create csv dir")
	}
	path := filepath.Join(cfg.CSVDataDir, dataflows.NormalizeSymbol(*symbol)+".csv")
	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Msg("create csv")
	}
	defer f.Close()
	if err := dataflows.WriteBarsCSV(f, bars); err != nil {
		log.Fatal().Err(err).Msg("write csv")
	}
	fmt.Printf("%d bars of %s from %s written to %s\n", len(bars), strings.ToUpper(*symbol), src.Name(), path)
}
