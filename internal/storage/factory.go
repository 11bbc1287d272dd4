package storage

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"mermaidrender/internal/adapters/storage/gdrive"
	"mermaidrender/internal/adapters/storage/localfs"
	"mermaidrender/internal/config"
)

// NewProvider builds the configured archive. It returns nil when archiving
// is disabled.
func NewProvider(ctx context.Context, opts config.StorageOpts, outputDir string) (Provider, error) {
	switch opts.Provider {
	case "", config.StorageNone:
		return nil, nil

	case config.StorageLocalFS:
		return localfs.New(outputDir), nil

	case config.StorageGDrive:
		return newGDriveProvider(ctx, opts)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", opts.Provider)
	}
}

// OAuthConfig is the Drive OAuth client shared with the token helper.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
}

func newGDriveProvider(ctx context.Context, opts config.StorageOpts) (Provider, error) {
	conf := OAuthConfig(opts.GDriveClientID, opts.GDriveSecret, "")

	tok := &oauth2.Token{RefreshToken: opts.GDriveToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return gdrive.NewClient(srv, opts.GDriveFolderID), nil
}
