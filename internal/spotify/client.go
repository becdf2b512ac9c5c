// Package spotify wraps the third-party now-playing endpoint. The engine
// treats every failure here as "no sample this cycle", never as a fault.
package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/echomatch/echomatch/internal/config"
)

// NowPlaying is the listening state reported by the upstream player.
type NowPlaying struct {
	TrackID    string
	TrackName  string
	ArtistID   string
	ArtistName string
	AlbumImage string
	Popularity int
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Spotify.BaseURL,
		http:    &http.Client{Timeout: cfg.Spotify.Timeout},
	}
}

// currentlyPlayingResponse mirrors the fields we read from the upstream
// payload; everything else is ignored.
type currentlyPlayingResponse struct {
	Item *struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Artists []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"album"`
		Popularity int `json:"popularity"`
	} `json:"item"`
}

// CurrentlyPlaying returns the user's current track, or (nil, nil) when
// nothing is playing (the upstream signals this with 204 or an empty item).
func (c *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (*NowPlaying, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/me/player/currently-playing", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("now-playing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("now-playing status %d: %s", resp.StatusCode, body)
	}

	var payload currentlyPlayingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode now-playing response: %w", err)
	}
	if payload.Item == nil {
		return nil, nil
	}

	np := &NowPlaying{
		TrackID:    payload.Item.ID,
		TrackName:  payload.Item.Name,
		Popularity: payload.Item.Popularity,
	}
	if len(payload.Item.Artists) > 0 {
		np.ArtistID = payload.Item.Artists[0].ID
		np.ArtistName = payload.Item.Artists[0].Name
	}
	if len(payload.Item.Album.Images) > 0 {
		np.AlbumImage = payload.Item.Album.Images[0].URL
	}
	return np, nil
}
