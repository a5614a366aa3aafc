// Command geocode runs one geocoding operation against ArcGIS and prints the
// result as a table or as JSON. Credentials are read from ARCGIS_CLIENT_ID
// and ARCGIS_CLIENT_SECRET.
//
// Usage:
//
//	go run ./cmd/geocode -op search -text "380 New York St, Redlands"
//	go run ./cmd/geocode -op reverse -lat 37.06146 -lon -122.00644
//	go run ./cmd/geocode -op bulk -addresses addresses.txt -json
//	go run ./cmd/geocode -op locate -text "Redlands, CA"
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/adapter/arcgis"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/adapter/geogolang"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/config"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/geocoder"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/observability"
)

type options struct {
	op         string
	text       string
	point      *domain.Point
	size       int
	magicKey   string
	forStorage bool
	addresses  string
	asJSON     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.op, "op", "search", "operation: search, autocomplete, reverse, bulk or locate")
	flag.StringVar(&opts.text, "text", "", "address or partial address")
	lat := flag.Float64("lat", 0, "latitude for reverse, or focus point for search, autocomplete and bulk")
	lon := flag.Float64("lon", 0, "longitude for reverse, or focus point for search, autocomplete and bulk")
	lonLat := flag.String("point", "", `point as "lon,lat"; overrides -lat and -lon`)
	flag.IntVar(&opts.size, "size", -1, "maximum search results; 0 sends no limit")
	flag.StringVar(&opts.magicKey, "magic-key", "", "suggestion key from autocomplete")
	flag.BoolVar(&opts.forStorage, "for-storage", false, "request results that may be stored")
	flag.StringVar(&opts.addresses, "addresses", "", "bulk input: a JSON array, or one address per line")
	flag.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	point, err := resolvePoint(set, *lat, *lon, *lonLat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "geocode:", err)
		os.Exit(2)
	}
	opts.point = point

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "geocode:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the result, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	metrics := observability.NewMetrics()

	registry := geocoder.NewRegistry(func(creds domain.Credentials) domain.Provider {
		return arcgis.NewClient(arcgis.Options{
			Credentials: creds,
			AuthURL:     cfg.ArcGISAuthURL,
			Timeout:     cfg.ArcGISTimeout,
			Metrics:     metrics,
			Logger:      logger,
		})
	}, metrics.RegistryClients)
	svc := geocoder.NewService(registry, nil, logger)
	creds := cfg.Credentials()

	focus := opts.point

	switch opts.op {
	case "autocomplete":
		res, err := svc.Autocomplete(ctx, domain.SuggestRequest{Credentials: creds, Text: opts.text, FocusPoint: focus})
		if err != nil {
			return err
		}
		if opts.asJSON {
			return printJSON(out, res)
		}
		printSuggestions(out, res.Features)
		return nil

	case "search":
		req := domain.SearchRequest{
			Credentials: creds,
			Text:        opts.text,
			FocusPoint:  focus,
			ForStorage:  opts.forStorage,
			MagicKey:    opts.magicKey,
		}
		if opts.size >= 0 {
			req.Size = domain.Size(opts.size)
		}
		res, err := svc.Search(ctx, req)
		if err != nil {
			return err
		}
		return printCollection(out, opts.asJSON, res, res.Features)

	case "reverse":
		res, err := svc.Reverse(ctx, domain.ReverseRequest{Credentials: creds, Point: focus, ForStorage: opts.forStorage})
		if err != nil {
			return err
		}
		return printCollection(out, opts.asJSON, res, res.Features)

	case "bulk":
		addrs, err := readAddresses(opts.addresses)
		if err != nil {
			return err
		}
		res, err := svc.Bulk(ctx, domain.BulkRequest{Credentials: creds, Addresses: addrs, FocusPoint: focus})
		if err != nil {
			return err
		}
		return printCollection(out, opts.asJSON, res, res.Features)

	case "locate":
		loc, err := geogolang.New(svc, creds, cfg.ArcGISTimeout).Geocode(opts.text)
		if err != nil {
			return err
		}
		if loc == nil {
			return errors.New(domain.NotFoundLabel)
		}
		fmt.Fprintf(out, "%s,%s\n", strconv.FormatFloat(loc.Lat, 'f', -1, 64), strconv.FormatFloat(loc.Lng, 'f', -1, 64))
		return nil

	default:
		return fmt.Errorf("unknown operation %q", opts.op)
	}
}

// resolvePoint builds the point from the flags that were set on the command
// line, so 0,0 is a valid point. set holds the names of those flags.
func resolvePoint(set map[string]bool, lat, lon float64, lonLat string) (*domain.Point, error) {
	switch {
	case set["point"]:
		p, err := domain.ParsePoint(lonLat)
		if err != nil {
			return nil, err
		}
		return &p, nil
	case set["lat"] && set["lon"]:
		return &domain.Point{Lat: lat, Lon: lon}, nil
	case set["lat"] || set["lon"]:
		return nil, errors.New("-lat and -lon must be set together")
	default:
		return nil, nil
	}
}

// readAddresses loads bulk input from path. A file starting with '[' is read
// as a JSON array of strings or records.
func readAddresses(path string) ([]domain.AddressInput, error) {
	if path == "" {
		return nil, errors.New("-addresses is required for bulk")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read addresses: %w", err)
	}

	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		var addrs []domain.AddressInput
		if err := json.Unmarshal([]byte(trimmed), &addrs); err != nil {
			return nil, fmt.Errorf("decode addresses: %w", err)
		}
		return addrs, nil
	}

	var addrs []domain.AddressInput
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			addrs = append(addrs, domain.Address(line))
		}
	}
	return addrs, sc.Err()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCollection(out io.Writer, asJSON bool, v any, features []*geojson.Feature) error {
	if asJSON {
		return printJSON(out, v)
	}
	printFeatures(out, features)
	return nil
}

func printFeatures(out io.Writer, features []*geojson.Feature) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Label", "Confidence", "Lon", "Lat", "Result ID"})
	for _, f := range features {
		var lon, lat string
		if f.Geometry != nil && len(f.Geometry.Point) == 2 {
			lon = strconv.FormatFloat(f.Geometry.Point[0], 'f', -1, 64)
			lat = strconv.FormatFloat(f.Geometry.Point[1], 'f', -1, 64)
		}
		confidence := ""
		if _, ok := f.Properties["confidence"]; ok {
			confidence = strconv.FormatFloat(f.PropertyMustFloat64("confidence", 0), 'f', 2, 64)
		}
		resultID := ""
		if id, ok := f.Properties["resultId"]; ok {
			resultID = fmt.Sprint(id)
		}
		table.Append([]string{f.PropertyMustString("label", ""), confidence, lon, lat, resultID})
	}
	table.Render()
}

func printSuggestions(out io.Writer, suggestions []domain.Suggestion) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Text", "Magic Key", "Collection"})
	for _, s := range suggestions {
		table.Append([]string{s.Text, s.MagicKey, strconv.FormatBool(s.IsCollection)})
	}
	table.Render()
}


// parseLevel maps LOG_LEVEL to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
