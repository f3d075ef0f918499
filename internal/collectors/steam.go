// Package collectors polls Steam Web API endpoints and refreshes the shared
// stats cache file.
package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const apiBase = "https://api.steampowered.com"

// SteamClient is a thin wrapper over the Steam Web API endpoints the bot needs.
type SteamClient struct {
	httpClient *http.Client
	apiKey     string
	appID      int
}

// NewSteamClient builds a client. The http.Client is expected to carry its
// own timeout and retry policy.
func NewSteamClient(httpClient *http.Client, apiKey string, appID int) *SteamClient {
	return &SteamClient{httpClient: httpClient, apiKey: apiKey, appID: appID}
}

type playersResponse struct {
	Response struct {
		PlayerCount int `json:"player_count"`
		Result      int `json:"result"`
	} `json:"response"`
}

// CurrentPlayers returns the number of players currently in game.
func (s *SteamClient) CurrentPlayers(ctx context.Context) (int, error) {
	q := url.Values{"appid": {strconv.Itoa(s.appID)}}
	var out playersResponse
	if err := s.get(ctx, "/ISteamUserStats/GetNumberOfCurrentPlayers/v1/", q, &out); err != nil {
		return 0, err
	}
	if out.Response.Result != 1 {
		return 0, fmt.Errorf("collectors: player count result %d", out.Response.Result)
	}
	return out.Response.PlayerCount, nil
}

// ServersStatus mirrors the matchmaking/services section of
// ICSGOServers_730/GetGameServersStatus.
type ServersStatus struct {
	Version          string
	VersionTimestamp int64
	Services         map[string]string
	OnlineServers    int
	OnlinePlayers    int
	SearchingPlayers int
	SearchSecondsAvg int
}

type serversResponse struct {
	Result struct {
		App struct {
			Version   json.Number `json:"version"`
			Timestamp int64       `json:"timestamp"`
		} `json:"app"`
		Services    map[string]string `json:"services"`
		Matchmaking struct {
			Scheduler        string `json:"scheduler"`
			OnlineServers    int    `json:"online_servers"`
			OnlinePlayers    int    `json:"online_players"`
			SearchingPlayers int    `json:"searching_players"`
			SearchSecondsAvg int    `json:"search_seconds_avg"`
		} `json:"matchmaking"`
	} `json:"result"`
}

// GameServers fetches the game-coordinator style status summary.
func (s *SteamClient) GameServers(ctx context.Context) (*ServersStatus, error) {
	q := url.Values{"key": {s.apiKey}}
	var out serversResponse
	if err := s.get(ctx, "/ICSGOServers_730/GetGameServersStatus/v1/", q, &out); err != nil {
		return nil, err
	}
	services := out.Result.Services
	if services == nil {
		services = map[string]string{}
	}
	if out.Result.Matchmaking.Scheduler != "" {
		services["scheduler"] = out.Result.Matchmaking.Scheduler
	}
	return &ServersStatus{
		Version:          out.Result.App.Version.String(),
		VersionTimestamp: out.Result.App.Timestamp,
		Services:         services,
		OnlineServers:    out.Result.Matchmaking.OnlineServers,
		OnlinePlayers:    out.Result.Matchmaking.OnlinePlayers,
		SearchingPlayers: out.Result.Matchmaking.SearchingPlayers,
		SearchSecondsAvg: out.Result.Matchmaking.SearchSecondsAvg,
	}, nil
}

func (s *SteamClient) get(ctx context.Context, path string, q url.Values, out any) error {
	u := apiBase + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("collectors: build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("collectors: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("collectors: %s: status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("collectors: %s: decode: %w", path, err)
	}
	return nil
}
