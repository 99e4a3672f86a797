// Package gdelt parses GDELT v2 Global Knowledge Graph (GKG) archives
// into market-wide news rows. Records carry no per-company mapping, so
// every row is filed under the synthetic MARKET ticker.
package gdelt

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stockshock-backend/internal/marketdata"
)

// MasterfileURL lists every published GKG archive with its timestamp.
const MasterfileURL = "https://data.gdeltproject.org/gdeltv2/masterfilelist.txt"

// MarketTicker is the ticker all GKG-derived news rows are filed under.
const MarketTicker = "MARKET"

const (
	gkgTimeLayout = "20060102150405"
	maxTitleLen   = 180
)

var (
	urlRe = regexp.MustCompile(`(?i)https?://`)
	// toneRe matches the V2TONE field: three or more comma-separated
	// decimals, the first of which is the average tone.
	toneRe = regexp.MustCompile(`^-?\d+(?:\.\d+)?(,-?\d+(?:\.\d+)?){2,}$`)
)

// ParseTimestamp reads the leading 14-digit GKG timestamp
// (YYYYMMDDHHMMSS). Shorter or malformed values report false.
func ParseTimestamp(value string) (time.Time, bool) {
	if len(value) < 14 {
		return time.Time{}, false
	}
	ts, err := time.Parse(gkgTimeLayout, value[:14])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// SelectFileURLs picks the GKG archive URLs from a masterfile listing
// that fall inside [start, end]. maxFiles and limitPerDay cap the total
// and per-day counts when positive.
func SelectFileURLs(masterfile io.Reader, start, end time.Time, maxFiles, limitPerDay int) ([]string, error) {
	var urls []string
	perDay := map[string]int{}

	scanner := bufio.NewScanner(masterfile)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			continue
		}
		fileURL := parts[2]
		if !strings.HasSuffix(fileURL, ".gkg.csv.zip") {
			continue
		}
		fileTime, ok := ParseTimestamp(parts[0])
		if !ok || fileTime.Before(start) || fileTime.After(end) {
			continue
		}

		if limitPerDay > 0 {
			dayKey := fileTime.Format("2006-01-02")
			if perDay[dayKey] >= limitPerDay {
				continue
			}
			perDay[dayKey]++
		}

		urls = append(urls, fileURL)
		if maxFiles > 0 && len(urls) >= maxFiles {
			break
		}
	}

	return urls, scanner.Err()
}

// ExtractURL finds the article URL in a GKG record. The document
// identifier sits near the end of the record, so fields are scanned in
// reverse; list separators cut off anything after the first entry.
func ExtractURL(fields []string) string {
	for i := len(fields) - 1; i >= 0; i-- {
		field := strings.TrimSpace(fields[i])
		if !urlRe.MatchString(field) {
			continue
		}
		if idx := strings.IndexByte(field, ';'); idx >= 0 {
			field = field[:idx]
		}
		if idx := strings.IndexByte(field, ','); idx >= 0 {
			field = field[:idx]
		}
		return field
	}
	return ""
}

// DeriveTitle turns the URL's trailing path slug into a readable
// headline, falling back to the host when the path carries no slug.
func DeriveTitle(articleURL string) string {
	parsed, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}

	slug := parsed.Path
	if idx := strings.LastIndexByte(slug, '/'); idx >= 0 {
		slug = slug[idx+1:]
	}
	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = parsed.Host
	}
	if len(slug) > maxTitleLen {
		slug = slug[:maxTitleLen]
	}
	return slug
}

// ExtractSource returns the URL's host.
func ExtractSource(articleURL string) string {
	parsed, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// ExtractSentiment pulls the average tone out of the V2TONE field,
// located by shape rather than position. Reports false when no field
// matches.
func ExtractSentiment(fields []string) (float64, bool) {
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" || !toneRe.MatchString(field) {
			continue
		}
		first := field
		if idx := strings.IndexByte(first, ','); idx >= 0 {
			first = first[:idx]
		}
		tone, err := strconv.ParseFloat(first, 64)
		if err != nil {
			return 0, false
		}
		return tone, true
	}
	return 0, false
}

// ParseRecords reads tab-delimited GKG records and keeps those whose
// timestamp falls inside [start, end] and that carry an article URL.
func ParseRecords(r io.Reader, start, end time.Time) ([]marketdata.NewsItem, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var items []marketdata.NewsItem
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}

		recordTime, ok := ParseTimestamp(fields[0])
		if !ok || recordTime.Before(start) || recordTime.After(end) {
			continue
		}
		articleURL := ExtractURL(fields)
		if articleURL == "" {
			continue
		}

		sentiment, _ := ExtractSentiment(fields)
		items = append(items, marketdata.NewsItem{
			Ticker:    MarketTicker,
			Date:      recordTime,
			Title:     DeriveTitle(articleURL),
			Source:    ExtractSource(articleURL),
			URL:       articleURL,
			Sentiment: sentiment,
		})
	}

	return items, nil
}

// ParseArchive reads the first entry of a GKG zip archive and parses
// its records.
func ParseArchive(data []byte, start, end time.Time) ([]marketdata.NewsItem, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) == 0 {
		return nil, nil
	}

	entry, err := zr.File[0].Open()
	if err != nil {
		return nil, err
	}
	defer entry.Close()

	return ParseRecords(entry, start, end)
}
