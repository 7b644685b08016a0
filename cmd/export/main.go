package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dohanimedicare/medicare-platform/cmd/mainconfig"
	"github.com/dohanimedicare/medicare-platform/internal/app/bootstrap"
	"github.com/dohanimedicare/medicare-platform/internal/appointments"
	"github.com/dohanimedicare/medicare-platform/internal/archive"
	appconfig "github.com/dohanimedicare/medicare-platform/internal/config"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// Usage: export [-status CONFIRMED] [-date 2026-10-20] [-search name] [-upload]
func main() {
	status := flag.String("status", "", "only export appointments with this status")
	date := flag.String("date", "", "only export appointments on this date (YYYY-MM-DD)")
	search := flag.String("search", "", "case-insensitive match on patient name or email")
	upload := flag.Bool("upload", false, "upload to EXPORT_BUCKET instead of writing to stdout")
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	filter, err := buildFilter(*status, *date, *search)
	if err != nil {
		log.Fatalf("filter: %v", err)
	}

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("stores: %v", err)
	}
	defer stores.Close()

	appts, err := stores.Appointments.FindByFilter(ctx, filter)
	if err != nil {
		log.Fatalf("list appointments: %v", err)
	}

	if !*upload {
		if err := appointments.WriteCSV(os.Stdout, appts); err != nil {
			log.Fatalf("write csv: %v", err)
		}
		return
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	store := bootstrap.BuildArchive(cfg, awsCfg, logger)
	if !store.Enabled() {
		log.Fatal("EXPORT_BUCKET is required with -upload")
	}
	key, err := uploadCSV(ctx, store, appts, describe(filter), time.Now())
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	fmt.Fprintf(os.Stdout, "uploaded %d appointments to s3://%s/%s\n", len(appts), cfg.ExportBucket, key)
}

func buildFilter(status, date, search string) (appointments.Filter, error) {
	f := appointments.Filter{
		Date:   strings.TrimSpace(date),
		Search: strings.TrimSpace(search),
	}
	if status = strings.TrimSpace(status); status != "" && !strings.EqualFold(status, "all") {
		s, err := appointments.ParseStatus(status)
		if err != nil {
			return f, err
		}
		f.Status = s
	}
	return f, nil
}

func describe(f appointments.Filter) string {
	var parts []string
	if f.Status != "" {
		parts = append(parts, "status="+string(f.Status))
	}
	if f.Date != "" {
		parts = append(parts, "date="+f.Date)
	}
	if f.Search != "" {
		parts = append(parts, "search="+f.Search)
	}
	return strings.Join(parts, "&")
}

type uploader interface {
	Put(ctx context.Context, exp archive.Export) (string, error)
}

func uploadCSV(ctx context.Context, store uploader, appts []appointments.Appointment, filter string, at time.Time) (string, error) {
	var buf bytes.Buffer
	if err := appointments.WriteCSV(&buf, appts); err != nil {
		return "", err
	}
	return store.Put(ctx, archive.Export{
		Dataset:     "appointments",
		Body:        buf.Bytes(),
		ContentType: "text/csv; charset=utf-8",
		Rows:        len(appts),
		Filter:      filter,
		At:          at,
	})
}
