package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"slices"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveFileScope grants access to files this tool created
const DriveFileScope = drive.DriveFileScope

// callbackAddress is where the browser redirects after consent
const callbackAddress = "localhost:8085"

// OAuthConfig holds the configuration for OAuth 2.0 authentication
type OAuthConfig struct {
	CredentialsFile string    // Path to OAuth client credentials JSON
	TokenFile       string    // Path to store/load token
	Prompt          io.Writer // Where the consent URL is printed
	Scopes          []string  // Scopes to request; DriveFileScope when empty
}

func (cfg OAuthConfig) scopes() []string {
	if len(cfg.Scopes) == 0 {
		return []string{DriveFileScope}
	}
	return cfg.Scopes
}

// TokenSource returns an authorized token source for cfg's scopes. A stored
// token is reused only when it was granted every requested scope.
func TokenSource(ctx context.Context, cfg OAuthConfig) (oauth2.TokenSource, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read OAuth credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, cfg.scopes()...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse OAuth credentials: %w", err)
	}

	token, err := getToken(ctx, config, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to get OAuth token: %w", err)
	}
	return config.TokenSource(ctx, token), nil
}

// storedToken is the token file layout
type storedToken struct {
	Scopes []string      `json:"scopes"`
	Token  *oauth2.Token `json:"token"`
}

// covers reports whether every scope in want was granted
func (s *storedToken) covers(want []string) bool {
	for _, scope := range want {
		if !slices.Contains(s.Scopes, scope) {
			return false
		}
	}
	return true
}

// getToken returns a stored token when it covers the requested scopes and
// can still be refreshed, otherwise runs the browser consent flow.
func getToken(ctx context.Context, config *oauth2.Config, cfg OAuthConfig) (*oauth2.Token, error) {
	if stored, err := loadToken(cfg.TokenFile); err == nil && stored.covers(config.Scopes) {
		fresh, err := config.TokenSource(ctx, stored.Token).Token()
		if err == nil {
			if fresh.AccessToken != stored.Token.AccessToken {
				saveToken(cfg.TokenFile, &storedToken{Scopes: stored.Scopes, Token: fresh})
			}
			return fresh, nil
		}
	}
	return getTokenFromWeb(ctx, config, cfg)
}

func loadToken(file string) (*storedToken, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stored := &storedToken{}
	if err := json.NewDecoder(f).Decode(stored); err != nil {
		return nil, err
	}
	if stored.Token == nil {
		return nil, errors.New("token file has no token")
	}
	return stored, nil
}

func saveToken(file string, stored *storedToken) error {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(stored)
}

// getTokenFromWeb serves a one-shot callback on localhost and exchanges the
// returned code for a token.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config, cfg OAuthConfig) (*oauth2.Token, error) {
	prompt := cfg.Prompt
	if prompt == nil {
		prompt = os.Stdout
	}
	config.RedirectURL = "http://" + callbackAddress + "/callback"

	listener, err := net.Listen("tcp", callbackAddress)
	if err != nil {
		return nil, fmt.Errorf("unable to listen for OAuth callback: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- errors.New("no code in callback")
			http.Error(w, "No authorization code received", http.StatusBadRequest)
			return
		}
		codeChan <- code
		fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You can close this window and return to the terminal.</p></body></html>")
	})
	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer server.Shutdown(context.WithoutCancel(ctx))

	authURL := config.AuthCodeURL("vidflow", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(prompt, "\nOpen this URL to authorize vidflow:\n\n%s\n\n", authURL)
	openBrowser(authURL)

	var authCode string
	select {
	case authCode = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange auth code: %w", err)
	}
	if err := saveToken(cfg.TokenFile, &storedToken{Scopes: config.Scopes, Token: token}); err != nil {
		fmt.Fprintf(prompt, "Warning: couldn't save token: %v\n", err)
	}
	return token, nil
}

// openBrowser tries the platform's URL opener; failures are ignored since
// the URL is also printed.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err == nil {
			cmd = exec.Command("xdg-open", url)
		} else if _, err := exec.LookPath("wslview"); err == nil {
			cmd = exec.Command("wslview", url)
		}
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}

	if cmd != nil {
		cmd.Start()
	}
}

// NewClientWithTokenSource creates a Google Drive client from an already
// authorized token source, so one consent can serve Drive and Gmail.
func NewClientWithTokenSource(ctx context.Context, ts oauth2.TokenSource, opts ...ClientOption) (*Client, error) {
	c := newClient(opts)

	if c.driveService == nil {
		srv, err := drive.NewService(ctx, option.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("unable to create drive service: %w", err)
		}
		c.driveService = &GoogleDriveService{service: srv}
	}

	return c, nil
}
