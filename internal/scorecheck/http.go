package scorecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/types"
)

const scoreboardPath = "/statistics/scoreboard"

// fetchScoreboard retrieves the scoreboard from baseURL.
func fetchScoreboard(ctx context.Context, client *http.Client, baseURL string) (types.Scoreboard, error) {
	url := strings.TrimRight(baseURL, "/") + scoreboardPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return types.Scoreboard{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return types.Scoreboard{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return types.Scoreboard{}, fmt.Errorf("%w: %s returned %d", ErrFetch, url, resp.StatusCode)
	}
	var sb types.Scoreboard
	if err := json.NewDecoder(resp.Body).Decode(&sb); err != nil {
		return types.Scoreboard{}, fmt.Errorf("%w: decode: %w", ErrFetch, err)
	}
	return sb, nil
}
