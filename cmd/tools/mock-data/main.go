// cmd/tools/mock-data/main.go
//
// Seeds the embedded finance store with deterministic random-walk price
// series and synthetic news so the dashboard has data to answer against.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"stockshock-backend/internal/common/config"
	"stockshock-backend/internal/common/database"
	"stockshock-backend/internal/marketdata"
)

type seriesParams struct {
	base       float64
	drift      float64
	volatility float64
	volumeBase float64
}

var defaultParams = map[string]seriesParams{
	"AAPL":  {base: 180.0, drift: 0.0002, volatility: 0.01, volumeBase: 85_000_000},
	"MSFT":  {base: 420.0, drift: 0.00025, volatility: 0.012, volumeBase: 30_000_000},
	"TSLA":  {base: 200.0, drift: 0.0003, volatility: 0.02, volumeBase: 70_000_000},
	"BTC":   {base: 45000.0, drift: 0.00035, volatility: 0.03, volumeBase: 250_000},
	"SP500": {base: 4800.0, drift: 0.00015, volatility: 0.007, volumeBase: 0},
}

var newsTemplates = []struct {
	title     string
	source    string
	sentiment float64
}{
	{"%s beats quarterly earnings estimates", "MarketWatch", 0.7},
	{"Analysts raise price target for %s", "Bloomberg", 0.5},
	{"%s faces regulatory scrutiny over new product", "Reuters", -0.4},
	{"%s announces leadership change", "CNBC", 0.1},
	{"Supply concerns weigh on %s outlook", "Financial Times", -0.3},
	{"%s expands into new markets", "WSJ", 0.4},
}

func generateSeries(ticker string, start, end time.Time, seed int64, p seriesParams) []marketdata.PriceBar {
	rng := rand.New(rand.NewSource(seed))
	price := p.base
	var bars []marketdata.PriceBar

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dailyReturn := rng.NormFloat64()*p.volatility + p.drift
		open := price
		close := math.Max(0.01, open*(1+dailyReturn))

		swing := math.Abs(rng.NormFloat64() * p.volatility / 2)
		high := math.Max(open, close) * (1 + swing)
		low := math.Min(open, close) * (1 - swing)

		volume := int64(math.Max(0, rng.NormFloat64()*p.volumeBase*0.2+p.volumeBase))

		bars = append(bars, marketdata.PriceBar{
			Ticker: ticker,
			Date:   day,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
		price = close
	}

	return bars
}

func generateNews(tickers []string, start, end time.Time, perDay int, seed int64) []marketdata.NewsItem {
	rng := rand.New(rand.NewSource(seed))
	var items []marketdata.NewsItem

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for i := 0; i < perDay; i++ {
			ticker := tickers[rng.Intn(len(tickers))]
			tmpl := newsTemplates[rng.Intn(len(newsTemplates))]
			noise := (rng.Float64() - 0.5) * 0.2
			items = append(items, marketdata.NewsItem{
				Ticker:    ticker,
				Date:      day.Add(12 * time.Hour),
				Title:     fmt.Sprintf(tmpl.title, ticker),
				Author:    "Staff Writer",
				Source:    tmpl.source,
				URL:       fmt.Sprintf("https://news.example.com/%s/%s", strings.ToLower(ticker), day.Format("2006-01-02")),
				Sentiment: math.Max(-1, math.Min(1, tmpl.sentiment+noise)),
			})
		}
	}

	return items
}

func main() {
	startFlag := flag.String("start", "", "Start date (YYYY-MM-DD), required")
	endFlag := flag.String("end", "", "End date (YYYY-MM-DD), required")
	tickersFlag := flag.String("tickers", "AAPL,MSFT,TSLA,BTC,SP500", "Comma-separated tickers to generate")
	clearFlag := flag.Bool("clear", false, "Delete existing price rows for these tickers before inserting")
	newsPerDay := flag.Int("news-per-day", 0, "If > 0, generate this many news items per day")
	seedFlag := flag.Int64("seed", 42, "Seed for deterministic mock data")
	dbFlag := flag.String("db", "", "Path to the database file (defaults to configured path)")
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
	end, err := time.Parse("2006-01-02", *endFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid end date: %v\n", err)
		os.Exit(1)
	}
	if end.Before(start) {
		fmt.Fprintln(os.Stderr, "Error: end date must be >= start date.")
		os.Exit(1)
	}

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

	tickers := strings.Split(*tickersFlag, ",")
	for i := range tickers {
		tickers[i] = strings.TrimSpace(tickers[i])
	}

	if *clearFlag {
		if err := store.ClearPrices(ctx, tickers); err != nil {
			fmt.Fprintf(os.Stderr, "Error: clearing prices failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared existing price rows for %s.\n", strings.Join(tickers, ", "))
	}

	totalBars := 0
	for i, ticker := range tickers {
		params, ok := defaultParams[ticker]
		if !ok {
			params = seriesParams{base: 100.0, drift: 0.0002, volatility: 0.015, volumeBase: 10_000_000}
		}

		bars := generateSeries(ticker, start, end, *seedFlag+int64(i), params)
		if err := store.InsertPrices(ctx, bars); err != nil {
			fmt.Fprintf(os.Stderr, "Error: inserting prices for %s failed: %v\n", ticker, err)
			os.Exit(1)
		}
		totalBars += len(bars)
		fmt.Printf("Inserted %d price bars for %s.\n", len(bars), ticker)
	}

	if *newsPerDay > 0 {
		items := generateNews(tickers, start, end, *newsPerDay, *seedFlag)
		if err := store.InsertNews(ctx, items); err != nil {
			fmt.Fprintf(os.Stderr, "Error: inserting news failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Inserted %d news items.\n", len(items))
	}

	fmt.Printf("Done. %d price bars total in %s.\n", totalBars, dbPath)
}
