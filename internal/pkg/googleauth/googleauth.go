package googleauth

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
)

// CredentialsFromFile loads service account credentials from path,
// falling back to ./credentials.json when the configured file does not
// exist (useful for local runs without the deploy-time secret mount).
func CredentialsFromFile(ctx context.Context, path string, scopes ...string) (*google.Credentials, error) {
	if _, err := os.Stat(path); err != nil {
		path = "credentials.json"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}
