// Package gemini talks to the Google inference service: asset upload and
// readiness polling, plus conversational sessions bound to uploaded media.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"mediachat/internal/models"
)

// Client wraps the genai client for one configured model.
type Client struct {
	genai *genai.Client
	model string
}

// NewClient connects to the service. The API key is required; callers treat a
// missing key as fatal before any route is served.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	if model == "" {
		return nil, errors.New("model name is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{genai: gc, model: model}, nil
}

// UploadAsset transmits a staged artifact and returns its remote handle. The
// handle's state is whatever the service reported; it is never assumed ready.
func (c *Client) UploadAsset(ctx context.Context, path, mimeType string) (*models.RemoteAsset, error) {
	file, err := c.genai.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	return assetFromFile(file), nil
}

// AssetState re-fetches the remote handle by name. The returned value
// replaces the caller's copy; handles are never mutated in place.
func (c *Client) AssetState(ctx context.Context, name string) (*models.RemoteAsset, error) {
	file, err := c.genai.Files.Get(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch asset state: %w", err)
	}
	return assetFromFile(file), nil
}

// DeleteAsset releases the remote asset.
func (c *Client) DeleteAsset(ctx context.Context, name string) error {
	if _, err := c.genai.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("delete asset %s: %w", name, err)
	}
	return nil
}

func assetFromFile(f *genai.File) *models.RemoteAsset {
	return &models.RemoteAsset{
		Name:     f.Name,
		URI:      f.URI,
		MIMEType: f.MIMEType,
		State:    mapState(f.State),
		RawState: string(f.State),
	}
}

func mapState(s genai.FileState) models.AssetState {
	switch s {
	case genai.FileStateActive:
		return models.AssetReady
	case genai.FileStateProcessing, genai.FileStateUnspecified:
		return models.AssetProcessing
	default:
		return models.AssetFailed
	}
}
