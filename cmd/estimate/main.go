// Command estimate runs the AI pricing chain against a photo or an item list
// and prints the result, so prompt and provider changes can be checked without
// the API.
//
//	estimate -image couch.jpg
//	estimate -items '[{"name":"couch","quantity":1,"size":"large"}]'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/text2toss/junk-removal-api/cmd/mainconfig"
	"github.com/text2toss/junk-removal-api/internal/app/bootstrap"
	appconfig "github.com/text2toss/junk-removal-api/internal/config"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

type options struct {
	imagePath   string
	itemsJSON   string
	description string
	timeout     time.Duration
}

type result struct {
	Provider    string        `json:"provider"`
	ScaleLevel  int           `json:"scale_level"`
	TotalPrice  float64       `json:"total_price"`
	Explanation string        `json:"explanation"`
	Items       []quotes.Item `json:"items,omitempty"`
	Elapsed     string        `json:"elapsed"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	var opts options
	flag.StringVar(&opts.imagePath, "image", "", "path to a junk photo")
	flag.StringVar(&opts.itemsJSON, "items", "", "JSON array of items")
	flag.StringVar(&opts.description, "description", "", "free-text description")
	flag.DurationVar(&opts.timeout, "timeout", 60*time.Second, "overall timeout")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	est, closeFn, err := bootstrap.BuildEstimator(ctx, cfg, awsCfg, logger)
	if err != nil {
		fatal(err)
	}
	defer closeFn()
	if est == nil {
		fatal(errors.New("no estimator configured: set GEMINI_API_KEY or BEDROCK_MODEL_ID"))
	}

	res, err := run(ctx, est, opts)
	if err != nil {
		fatal(err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}

func run(ctx context.Context, est quotes.Estimator, opts options) (*result, error) {
	start := time.Now()
	var (
		estimate quotes.Estimate
		err      error
	)
	switch {
	case opts.imagePath != "":
		img, readErr := readImage(opts.imagePath)
		if readErr != nil {
			return nil, readErr
		}
		img.Description = opts.description
		estimate, err = est.EstimateImage(ctx, img)
	case opts.itemsJSON != "":
		var items []quotes.Item
		if err := json.Unmarshal([]byte(opts.itemsJSON), &items); err != nil {
			return nil, fmt.Errorf("parse -items: %w", err)
		}
		estimate, err = est.EstimateItems(ctx, items, opts.description)
	default:
		return nil, errors.New("one of -image or -items is required")
	}
	if err != nil {
		return nil, err
	}
	return &result{
		Provider:    estimate.Provider,
		ScaleLevel:  estimate.ScaleLevel,
		TotalPrice:  estimate.TotalPrice,
		Explanation: estimate.Explanation,
		Items:       estimate.Items,
		Elapsed:     time.Since(start).Round(time.Millisecond).String(),
	}, nil
}

func readImage(path string) (quotes.ImageInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return quotes.ImageInput{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return quotes.ImageInput{}, err
	}
	return quotes.ImageInput{Data: data, MIMEType: http.DetectContentType(data)}, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "estimate:", err)
	os.Exit(1)
}
