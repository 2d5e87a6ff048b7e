package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Lichess opening explorer.
const DefaultBaseURL = "https://explorer.lichess.ovh"

// LichessClient queries the Lichess opening explorer.
// Note: the public API is rate limited; wrap it in a CachedSource.
type LichessClient struct {
	client  *http.Client
	baseURL string
}

// NewLichessClient creates a client for baseURL (DefaultBaseURL when empty).
func NewLichessClient(baseURL string, timeout time.Duration) *LichessClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LichessClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Lichess explorer response structure
type lichessResponse struct {
	White int           `json:"white"`
	Draws int           `json:"draws"`
	Black int           `json:"black"`
	Moves []lichessMove `json:"moves"`
}

type lichessMove struct {
	UCI   string `json:"uci"`
	SAN   string `json:"san"`
	White int    `json:"white"`
	Draws int    `json:"draws"`
	Black int    `json:"black"`
}

func (m lichessMove) games() int {
	return m.White + m.Draws + m.Black
}

func (lc *LichessClient) TopResponses(ctx context.Context, fen string) ([]Response, error) {
	q := url.Values{}
	q.Set("variant", "standard")
	q.Set("fen", fen)
	endpoint := lc.baseURL + "/lichess?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("explorer: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := lc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer: unexpected status %d", resp.StatusCode)
	}

	var result lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("explorer: decode: %w", err)
	}

	total := result.White + result.Draws + result.Black
	if total == 0 {
		for _, m := range result.Moves {
			total += m.games()
		}
	}
	if total == 0 {
		return nil, nil
	}

	responses := make([]Response, 0, len(result.Moves))
	for _, m := range result.Moves {
		responses = append(responses, Response{
			Move:  m.SAN,
			UCI:   m.UCI,
			Games: m.games(),
			Share: float64(m.games()) / float64(total),
		})
	}
	sortByGames(responses)
	return responses, nil
}
