package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/daypilot/pkg/model"
)

const (
	// ClientSecretsFile is the downloaded Google API credentials.json,
	// expected in the app's config directory.
	ClientSecretsFile = "credentials.json"

	// LocalhostAuthPort is the port the local web server listens on to
	// capture the OAuth redirect.
	LocalhostAuthPort = "6789"

	userinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Scopes grants read access to the user's calendar plus the account email,
// which identifies the connection.
var Scopes = []string{
	calendar.CalendarReadonlyScope,
	"https://www.googleapis.com/auth/userinfo.email",
}

// LoadOAuthConfig reads the client secrets file from configDir and returns an
// oauth2 config with the local redirect wired in.
func LoadOAuthConfig(configDir string) (*oauth2.Config, error) {
	path := filepath.Join(configDir, ClientSecretsFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", path, err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	config.RedirectURL = fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	return config, nil
}

// ConnectAccount runs the browser authorization flow for one external
// calendar account: capture the code on a local listener, exchange it for a
// token with offline access, then resolve the account's email so duplicate
// connections can be rejected.
func ConnectAccount(ctx context.Context, config *oauth2.Config) (model.ConnectedAccount, error) {
	tok, err := getTokenFromWeb(ctx, config)
	if err != nil {
		return model.ConnectedAccount{}, err
	}

	email, err := fetchEmail(ctx, config, tok)
	if err != nil {
		return model.ConnectedAccount{}, err
	}

	raw, err := json.Marshal(tok)
	if err != nil {
		return model.ConnectedAccount{}, fmt.Errorf("failed to encode token: %w", err)
	}
	return model.ConnectedAccount{
		Email:       email,
		Token:       raw,
		ConnectedAt: time.Now().UTC(),
	}, nil
}

// getTokenFromWeb starts a local HTTP server, points the user's browser at
// the consent page, and exchanges the captured authorization code.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string)
	errCh := make(chan error)

	listener, err := net.Listen("tcp", ":"+LocalhostAuthPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				errCh <- fmt.Errorf("authorization code not found in redirect URL")
				return
			}
			fmt.Fprintf(w, "Account connected! You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// AccessTypeOffline ensures a refresh token comes back, so syncs keep
	// working after the access token expires.
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Open the following URL in your browser to connect the account:\n%s\n", authURL)

	select {
	case authCode := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exchangeCtx, authCode)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token: %w", err)
		}
		server.Shutdown(exchangeCtx)
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(5 * time.Minute):
		server.Shutdown(context.Background())
		return nil, fmt.Errorf("authorization timed out, please try again")
	case <-ctx.Done():
		server.Shutdown(context.Background())
		return nil, ctx.Err()
	}
}

func fetchEmail(ctx context.Context, config *oauth2.Config, tok *oauth2.Token) (string, error) {
	client := config.Client(ctx, tok)
	resp, err := client.Get(userinfoEndpoint)
	if err != nil {
		return "", fmt.Errorf("failed to fetch account info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("account info request returned %d: %s", resp.StatusCode, body)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode account info: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("account info response contained no email")
	}
	return info.Email, nil
}
