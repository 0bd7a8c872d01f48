// Package media fills in image attachment metadata the caller did not supply.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
)

// probeLimit bounds how much of a remote file is fetched; image headers sit
// well within the first 512KB.
const probeLimit = 512 * 1024

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ProbeBytes decodes just the image config from raw bytes.
func ProbeBytes(data []byte) (Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, fmt.Errorf("decode_config: %w", err)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// ProbeURL fetches the head of an image URL and extracts its dimensions.
func ProbeURL(ctx context.Context, client *http.Client, url string) (Dimensions, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return Dimensions{}, err
	}
	res, err := client.Do(req)
	if err != nil {
		return Dimensions{}, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Dimensions{}, fmt.Errorf("probe_non_2xx status=%d", res.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, probeLimit))
	if err != nil {
		return Dimensions{}, err
	}
	return ProbeBytes(data)
}

// FillDimensions populates Width/Height on image attachments that lack them.
// Probe failures are returned but attachments are left untouched; callers
// treat this as best effort.
func FillDimensions(ctx context.Context, client *http.Client, media []models.MediaAttachment) error {
	var firstErr error
	for i := range media {
		m := &media[i]
		if m.Type != "image" && m.Type != "gif" {
			continue
		}
		if m.Width != nil && m.Height != nil {
			continue
		}
		dims, err := ProbeURL(ctx, client, m.URL)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("probe %s: %w", m.URL, err)
			}
			continue
		}
		w, h := dims.Width, dims.Height
		m.Width = &w
		m.Height = &h
	}
	return firstErr
}
