package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/palaver/pkg/llm"
)

const maxBodyDisplay = 500

// describeError renders err for the terminal. Provider error bodies are
// reduced to their message: JSON envelopes to error.message and HTML pages
// (typically from a proxy or gateway) to markdown.
func describeError(err error) string {
	pe, ok := llm.AsProviderError(err)
	if !ok {
		if errors.Is(err, llm.ErrMissingCredential) {
			return err.Error() + " (set it in the environment or an --env-file)"
		}
		return err.Error()
	}

	msg := fmt.Sprintf("%s returned HTTP %d", pe.Provider, pe.StatusCode)
	switch {
	case llm.IsRateLimit(err):
		msg += " (rate limited)"
	case llm.IsAuth(err):
		msg += " (check your API key)"
	}
	if body := bodyMessage(pe.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// bodyMessage extracts a human-readable message from a provider error body.
func bodyMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	if looksLikeHTML(text) {
		if md, err := htmltomarkdown.ConvertString(text); err == nil {
			text = strings.TrimSpace(md)
		}
	}
	return truncate(text, maxBodyDisplay)
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") ||
		strings.Contains(lower, "<body")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
