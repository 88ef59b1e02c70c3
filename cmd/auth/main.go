// Package main provides the Spotify authentication tool.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/hibiki/internal/infra/logger"
)

var (
	app          = kingpin.New("hibiki-auth", "Spotify authentication tool for the hibiki spotify catalog")
	clientID     = app.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()
	timeout      = app.Flag("timeout", "How long to wait for the authorization").Default("5m").Duration()
)

// callback receives the authorization redirect.
type callback struct {
	auth  *spotifyauth.Authenticator
	state string
	ch    chan *oauth2.Token
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse flags
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if _, err := logger.Init(logger.Config{Output: "stderr", Level: "info"}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Build redirect URI with custom port
	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", *port)

	// The catalog only searches, which needs no scopes
	cb := &callback{
		auth: spotifyauth.New(
			spotifyauth.WithRedirectURL(redirectURI),
			spotifyauth.WithClientID(*clientID),
			spotifyauth.WithClientSecret(*clientSecret),
		),
		state: uuid.NewString(),
		ch:    make(chan *oauth2.Token, 1),
	}

	// Start HTTP server for callback
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", cb.complete)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Msgf("Failed to start server: %v", err)
		}
	}()

	// Print authorization URL
	fmt.Println("Please visit the following URL to authorize hibiki:")
	fmt.Println("")
	fmt.Println(cb.auth.AuthURL(cb.state))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	// Wait for token
	var token *oauth2.Token
	select {
	case token = <-cb.ch:
	case <-time.After(*timeout):
		zlog.Error().Msgf("Authorization timed out after %s", *timeout)
	}

	// Shutdown server
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Warn().Msgf("Failed to shutdown server: %v", err)
	}
	if token == nil {
		os.Exit(1)
	}

	// Print token
	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")
	fmt.Println("Add this to your server.yaml:")
	fmt.Println("")
	fmt.Println("catalog:")
	fmt.Println("  provider: spotify")
	fmt.Println("  settings:")
	fmt.Printf("    refresh_token: \"%s\"\n", token.RefreshToken)
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=\"%s\"\n", token.RefreshToken)
}

func (cb *callback) complete(w http.ResponseWriter, r *http.Request) {
	if st := r.FormValue("state"); st != cb.state {
		http.Error(w, "State mismatch", http.StatusForbidden)
		zlog.Warn().Msgf("State mismatch: got=%s", st)
		return
	}

	token, err := cb.auth.Token(r.Context(), cb.state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusForbidden)
		zlog.Warn().Msgf("Failed to get token: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>hibiki - Authorization Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 20vh;">
    <h1>Authorization Complete</h1>
    <p>You can close this window and return to the terminal.</p>
</body>
</html>
`)

	select {
	case cb.ch <- token:
	default:
	}
}
