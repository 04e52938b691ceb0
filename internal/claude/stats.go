package claude

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// ParseStatsCache reads ~/.claude/stats-cache.json and returns the parsed stats.
func ParseStatsCache(claudeHome string) (*StatsCache, error) {
	path := filepath.Join(claudeHome, "stats-cache.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stats StatsCache
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// DailySince returns the daily rows dated on or after since (YYYY-MM-DD).
// Dates compare as strings, so malformed dates sort wherever they fall.
func (s *StatsCache) DailySince(since string) []DailyActivity {
	if s == nil {
		return nil
	}
	var out []DailyActivity
	for _, d := range s.DailyActivity {
		if d.Date >= since {
			out = append(out, d)
		}
	}
	return out
}

// Hours converts the all-time hour counts to integer keys, dropping keys that
// are not hours of the day.
func (s *StatsCache) Hours() map[int]int {
	out := make(map[int]int)
	if s == nil {
		return out
	}
	for k, v := range s.HourCounts {
		h, err := strconv.Atoi(k)
		if err != nil || h < 0 || h > 23 {
			continue
		}
		out[h] = v
	}
	return out
}
