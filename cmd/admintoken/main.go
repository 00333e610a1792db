// Command admintoken mints a bearer token for the admin API.
package main

import (
	"fmt"
	"os"
	"time"

	"webhook-dispatcher/config"
	"webhook-dispatcher/internal/service"

	"github.com/spf13/pflag"
)

func main() {
	subject := pflag.StringP("subject", "s", "", "operator identity embedded in the token (required)")
	configFile := pflag.StringP("config", "c", os.Getenv("PWH_CONFIG_FILE"), "path to config file")
	expiry := pflag.DurationP("expiry", "e", 0, "token lifetime, defaults to jwt.expiry")
	pflag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "--subject is required")
		pflag.Usage()
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "jwt.secret is empty, set PWH_JWT_SECRET")
		os.Exit(1)
	}

	ttl := cfg.JWT.Expiry
	if *expiry > 0 {
		ttl = *expiry
	}

	token, expiresAt, err := service.NewJWTTokenService(cfg.JWT.Secret, ttl, cfg.JWT.Issuer).Generate(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
	fmt.Println(token)
}
