// cmd/tools/ingest-gdelt/main.go
//
// Ingests GDELT v2 Global Knowledge Graph archives into the embedded
// finance store as market-wide news rows under the MARKET ticker.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"stockshock-backend/internal/common/config"
	"stockshock-backend/internal/common/database"
	"stockshock-backend/internal/gdelt"
	"stockshock-backend/internal/marketdata"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

func fetch(url string) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func main() {
	startFlag := flag.String("start", "", "Start date (YYYY-MM-DD), required")
	endFlag := flag.String("end", "", "End date (YYYY-MM-DD), required")
	dbFlag := flag.String("db", "", "Path to the database file (defaults to configured path)")
	maxFiles := flag.Int("max-files", 0, "If > 0, limit the number of GKG archives to ingest")
	limitPerDay := flag.Int("limit-per-day", 0, "If > 0, limit archives per day (for sampling)")
	clearFlag := flag.Bool("clear", false, "Delete existing MARKET news rows before inserting")
	maxRows := flag.Int("max-rows", 0, "If > 0, stop after inserting this many rows")
	flag.Parse()

	if *startFlag == "" || *endFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: -start and -end are required.")
		flag.Usage()
		os.Exit(1)
	}

	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid start date: %v\n", err)
		os.Exit(1)
	}
	endDay, err := time.Parse("2006-01-02", *endFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid end date: %v\n", err)
		os.Exit(1)
	}
	if endDay.Before(start) {
		fmt.Fprintln(os.Stderr, "Error: end date must be >= start date.")
		os.Exit(1)
	}
	end := endDay.AddDate(0, 0, 1).Add(-time.Second)

	dbPath := *dbFlag
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: config load failed: %v\n", err)
			os.Exit(1)
		}
		dbPath = cfg.Database.SQLite.Path
	}

	client, err := database.NewSQLite(config.SQLiteConfig{Path: dbPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open database: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	store := marketdata.NewStore(client.GetDB())

	if err := store.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: schema setup failed: %v\n", err)
		os.Exit(1)
	}

	if *clearFlag {
		if err := store.ClearNews(ctx, []string{gdelt.MarketTicker}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: clearing news failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared existing %s news rows.\n", gdelt.MarketTicker)
	}

	masterfile, err := fetch(gdelt.MasterfileURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: fetching masterfile failed: %v\n", err)
		os.Exit(1)
	}

	urls, err := gdelt.SelectFileURLs(bytes.NewReader(masterfile), start, end, *maxFiles, *limitPerDay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading masterfile failed: %v\n", err)
		os.Exit(1)
	}
	if len(urls) == 0 {
		fmt.Println("No GKG archives in the requested range.")
		return
	}

	totalRows := 0
	for _, archiveURL := range urls {
		fmt.Printf("Downloading %s...\n", archiveURL)
		data, err := fetch(archiveURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: downloading %s failed: %v\n", archiveURL, err)
			os.Exit(1)
		}

		items, err := gdelt.ParseArchive(data, start, end)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: parsing %s failed: %v\n", archiveURL, err)
			os.Exit(1)
		}
		if err := store.InsertNews(ctx, items); err != nil {
			fmt.Fprintf(os.Stderr, "Error: inserting news failed: %v\n", err)
			os.Exit(1)
		}

		totalRows += len(items)
		fmt.Printf("Inserted %d rows (total %d).\n", len(items), totalRows)
		if *maxRows > 0 && totalRows >= *maxRows {
			break
		}
	}

	fmt.Printf("Done. %d news rows total in %s.\n", totalRows, dbPath)
}
