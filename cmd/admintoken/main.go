package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	appconfig "github.com/dohanimedicare/medicare-platform/internal/config"
	httpmiddleware "github.com/dohanimedicare/medicare-platform/internal/http/middleware"
)

// Usage: admintoken -sub ops@dohanimedicare.com [-ttl 12h]
func main() {
	subject := flag.String("sub", "", "operator identity recorded in the token subject")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()

	if err := run(os.Stdout, cfg.AdminJWTSecret, *subject, *ttl, time.Now()); err != nil {
		log.Fatal(err)
	}
}

func run(w io.Writer, secret, subject string, ttl time.Duration, now time.Time) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required")
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("-sub is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("-ttl must be positive")
	}
	token, err := httpmiddleware.IssueAdminToken(secret, subject, ttl, now)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
