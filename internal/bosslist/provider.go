// Package bosslist supplies candidate boss names per game. Candidates come
// from the configured built-in lists, optionally augmented by a remote JSON
// source, and are held in an in-memory cache with a short expiry.
package bosslist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"bosstitler/internal/config"
	"bosstitler/internal/logging"
)

// Provider resolves candidate boss names for a game.
type Provider struct {
	sourceURL  string
	expiry     time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	builtin map[string][]string
	cache   map[string]cachedList
}

type cachedList struct {
	names   []string
	fetched time.Time
}

// Option customizes the provider.
type Option func(*Provider)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewProvider builds a provider from configuration. Built-in lists always
// apply; the remote source is consulted only when a URL is configured.
func NewProvider(cfg *config.Config, logger *slog.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	provider := &Provider{
		sourceURL:  strings.TrimSpace(cfg.BossList.SourceURL),
		expiry:     time.Duration(cfg.BossList.CacheExpiryMinutes) * time.Minute,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logging.NewComponentLogger(logger, "bosslist"),
		builtin:    builtinLists(cfg.SoulslikeGames),
		cache:      make(map[string]cachedList),
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// Candidates returns the known boss names for a game, sorted, or an empty
// slice when the game has no known list. Remote failures degrade to the
// built-in list rather than erroring.
func (p *Provider) Candidates(ctx context.Context, game string) []string {
	key := strings.ToLower(strings.TrimSpace(game))
	if key == "" {
		return nil
	}

	p.mu.Lock()
	if entry, ok := p.cache[key]; ok && time.Since(entry.fetched) < p.expiry {
		names := entry.names
		p.mu.Unlock()
		return names
	}
	base := p.builtin[key]
	p.mu.Unlock()

	merged := mergeNames(base, nil)
	if p.sourceURL != "" {
		remote, err := p.fetchRemote(ctx, game)
		if err != nil {
			p.logger.Warn("remote boss list unavailable",
				logging.String(logging.FieldGame, game),
				logging.Error(err))
		} else {
			merged = mergeNames(base, remote)
		}
	}

	p.mu.Lock()
	p.cache[key] = cachedList{names: merged, fetched: time.Now()}
	p.mu.Unlock()
	return merged
}

func (p *Provider) fetchRemote(ctx context.Context, game string) ([]string, error) {
	endpoint := strings.ReplaceAll(p.sourceURL, "{game}", strings.ReplaceAll(strings.ToLower(game), " ", "-"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return parseRemoteList(data)
}

// parseRemoteList accepts either a bare JSON array of names or an object
// with a "data" array of {"name": ...} records.
func parseRemoteList(data []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return cleanNames(names), nil
	}

	var wrapper struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode boss list: %w", err)
	}
	for _, record := range wrapper.Data {
		names = append(names, record.Name)
	}
	return cleanNames(names), nil
}

func cleanNames(names []string) []string {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

func mergeNames(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, name := range list {
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, name)
		}
	}
	sort.Strings(merged)
	return merged
}

func builtinLists(games []string) map[string][]string {
	lists := make(map[string][]string, len(games))
	for _, game := range games {
		key := strings.ToLower(strings.TrimSpace(game))
		if key == "" {
			continue
		}
		if bosses, ok := knownBosses[key]; ok {
			lists[key] = append([]string(nil), bosses...)
		} else {
			lists[key] = nil
		}
	}
	return lists
}

// knownBosses covers the configured soulslike catalog. Unknown games fall
// through with no candidates, which leaves the classifier unconstrained.
var knownBosses = map[string][]string{
	"elden ring": {
		"Margit, the Fell Omen", "Godrick the Grafted", "Rennala, Queen of the Full Moon",
		"Starscourge Radahn", "Morgott, the Omen King", "Rykard, Lord of Blasphemy",
		"Malenia, Blade of Miquella", "Mohg, Lord of Blood", "Fire Giant",
		"Maliketh, the Black Blade", "Radagon of the Golden Order", "Elden Beast",
	},
	"dark souls": {
		"Asylum Demon", "Taurus Demon", "Bell Gargoyles", "Capra Demon",
		"Gaping Dragon", "Chaos Witch Quelaag", "Iron Golem",
		"Ornstein and Smough", "Gravelord Nito", "Gwyn, Lord of Cinder",
	},
	"dark souls ii": {
		"The Last Giant", "The Pursuer", "The Rotten", "Looking Glass Knight",
		"Velstadt, the Royal Aegis", "Nashandra",
	},
	"dark souls iii": {
		"Iudex Gundyr", "Vordt of the Boreal Valley", "Abyss Watchers",
		"Pontiff Sulyvahn", "Aldrich, Devourer of Gods", "Dancer of the Boreal Valley",
		"Lothric, Younger Prince", "Soul of Cinder", "Nameless King",
	},
	"bloodborne": {
		"Cleric Beast", "Father Gascoigne", "Blood-starved Beast", "Vicar Amelia",
		"Shadow of Yharnam", "Rom, the Vacuous Spider", "The One Reborn",
		"Micolash, Host of the Nightmare", "Mergo's Wet Nurse", "Gehrman, the First Hunter",
	},
	"sekiro": {
		"Gyoubu Oniwa", "Lady Butterfly", "Genichiro Ashina", "Guardian Ape",
		"Corrupted Monk", "Owl", "Great Shinobi Owl", "Isshin, the Sword Saint",
	},
	"demon's souls": {
		"Phalanx", "Tower Knight", "Armor Spider", "Flamelurker",
		"Penetrator", "False King Allant", "Maiden Astraea",
	},
	"lies of p": {
		"Parade Master", "Mad Donkey", "Scrapped Watchman", "King's Flame, Fuoco",
		"Romeo, King of Puppets", "Laxasia the Complete", "Simon Manus, Arm of God",
	},
}
