package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanMarkdownWrapper strips the code fences language models like to wrap
// JSON responses in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}

// parseExtraction decodes an extraction response body.
func parseExtraction(content string) ([]ExtractedTransaction, error) {
	content = cleanMarkdownWrapper(content)

	var resp struct {
		Transactions []ExtractedTransaction `json:"transactions"`
	}
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("malformed extraction JSON: %w", err)
	}

	return resp.Transactions, nil
}

// parseScore decodes a pair-scoring response body and clamps the score to
// [0,1].
func parseScore(content string) (MatchScore, error) {
	content = cleanMarkdownWrapper(content)

	var score MatchScore
	if err := json.Unmarshal([]byte(content), &score); err != nil {
		return MatchScore{}, fmt.Errorf("malformed score JSON: %w", err)
	}

	if score.Score < 0 {
		score.Score = 0
	}
	if score.Score > 1 {
		score.Score = 1
	}

	return score, nil
}
