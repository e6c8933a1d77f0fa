package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

const authorizeTimeout = 5 * time.Minute

// oauthInitCmd runs the installed-app flow once and saves the token the
// worker uses with GOOGLE_OAUTH_CLIENT_FILE.
func oauthInitCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "oauth-init",
		Short: "Authorize Google Sheets access and save the OAuth token",
		Long: `Open the printed URL, grant access, and the token is written to
GOOGLE_OAUTH_TOKEN_FILE (default token.json). The OAuth client must list
http://localhost:<port>/callback as an authorized redirect URI.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.GoogleOAuthClientFile == "" {
				return errors.New("set GOOGLE_OAUTH_CLIENT_FILE")
			}
			b, err := os.ReadFile(cfg.GoogleOAuthClientFile)
			if err != nil {
				return fmt.Errorf("read client file: %w", err)
			}
			oc, err := google.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
			if err != nil {
				return fmt.Errorf("oauth config: %w", err)
			}
			oc.RedirectURL = "http://localhost:" + port + "/callback"

			ln, err := net.Listen("tcp", "localhost:"+port)
			if err != nil {
				return fmt.Errorf("listen for callback: %w", err)
			}

			state := uuid.NewString()
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n",
				oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

			ctx, cancel := context.WithTimeout(cmd.Context(), authorizeTimeout)
			defer cancel()

			code, err := awaitCode(ctx, ln, state)
			if err != nil {
				return err
			}
			tok, err := oc.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("token exchange: %w", err)
			}

			out := cfg.GoogleOAuthTokenFile
			if out == "" {
				out = "token.json"
			}
			if err := saveToken(out, tok); err != nil {
				return err
			}
			logger.Info("Saved OAuth token", "path", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "8085", "local port for the OAuth redirect")
	return cmd
}

// awaitCode serves the redirect on ln until one callback carrying state
// arrives, then shuts the listener down.
func awaitCode(ctx context.Context, ln net.Listener, state string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization denied: %s", q.Get("error")))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			trySend(codeCh, q.Get("code"))
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("authorization not completed: %w", ctx.Err())
	}
}

func trySend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
