// Package grammar corrects user questions with a LanguageTool server.
package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

type Config struct {
	URL      string
	Language string
	Timeout  time.Duration
}

type LanguageTool struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

type match struct {
	Message      string `json:"message"`
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
	Rule struct {
		ID        string `json:"id"`
		IssueType string `json:"issueType"`
	} `json:"rule"`
}

type checkResponse struct {
	Matches []match `json:"matches"`
}

func NewLanguageTool(config Config, logger *zap.Logger) *LanguageTool {
	if config.URL == "" {
		config.URL = "http://localhost:8081"
	}
	if config.Language == "" {
		config.Language = "en-US"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LanguageTool{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Correct applies the first suggested replacement of every match. Spelling
// suggestions that capitalize a word are skipped since they usually turn
// ordinary words into proper nouns.
func (lt *LanguageTool) Correct(ctx context.Context, text string) (string, error) {
	form := url.Values{}
	form.Set("language", lt.config.Language)
	form.Set("text", text)

	endpoint := strings.TrimRight(lt.config.URL, "/") + "/v2/check"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return text, fmt.Errorf("failed to create grammar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := lt.client.Do(req)
	if err != nil {
		return text, fmt.Errorf("grammar check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return text, fmt.Errorf("grammar check returned status %d", resp.StatusCode)
	}

	var result checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return text, fmt.Errorf("failed to decode grammar response: %w", err)
	}

	return apply(text, result.Matches, lt.logger), nil
}

func apply(text string, matches []match, logger *zap.Logger) string {
	// LanguageTool offsets count UTF-16 code units; questions are short and
	// overwhelmingly BMP text, so runes are used
	runes := []rune(text)

	sort.Slice(matches, func(i, j int) bool { return matches[i].Offset > matches[j].Offset })
	end := len(runes) + 1
	for _, m := range matches {
		if len(m.Replacements) == 0 || m.Offset < 0 || m.Offset+m.Length > len(runes) || m.Offset+m.Length > end {
			continue
		}
		replacement := m.Replacements[0].Value
		if isCapitalizingSpellFix(m, replacement) {
			continue
		}
		logger.Debug("grammar fix", zap.String("rule", m.Rule.ID), zap.String("message", m.Message))
		runes = append(runes[:m.Offset], append([]rune(replacement), runes[m.Offset+m.Length:]...)...)
		end = m.Offset
	}
	return string(runes)
}

func isCapitalizingSpellFix(m match, replacement string) bool {
	if m.Rule.IssueType != "misspelling" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(replacement)
	return unicode.IsUpper(r)
}
