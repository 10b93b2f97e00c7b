// Command token mints a signed access/refresh pair for local testing against
// the API. It reads the same JWT_* variables as the server.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"voice-agent-dashboard/internal/auth"
	"voice-agent-dashboard/internal/config"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()

	var (
		userID     = flag.StringP("user", "u", "", "user id to embed in the token (required)")
		email      = flag.StringP("email", "e", "", "email claim")
		secret     = flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (default $JWT_SECRET)")
		issuer     = flag.String("issuer", os.Getenv("JWT_ISSUER"), "iss claim (default $JWT_ISSUER)")
		audience   = flag.String("audience", os.Getenv("JWT_AUDIENCE"), "aud claim (default $JWT_AUDIENCE)")
		accessTTL  = flag.Duration("access-ttl", 15*time.Minute, "access token lifetime")
		refreshTTL = flag.Duration("refresh-ttl", 7*24*time.Hour, "refresh token lifetime")
		asJSON     = flag.Bool("json", false, "print the pair as JSON instead of the bare access token")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "token: --user is required")
		flag.Usage()
		os.Exit(2)
	}

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       *secret,
		JWTIssuer:       *issuer,
		JWTAudience:     *audience,
		AccessTokenTTL:  *accessTTL,
		RefreshTokenTTL: *refreshTTL,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}

	pair, err := m.IssuePair(time.Now(), *userID, *email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}

	if !*asJSON {
		fmt.Println(pair.AccessToken)
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
