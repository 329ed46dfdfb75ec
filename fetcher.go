package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// HTTP timeout for each fetch
	FetchTimeout = 30 * time.Second

	// Maximum characters of extracted text to keep
	MaxPageContentLength = 20000
)

// FetchURLContent fetches a web page and extracts its readable text content.
// Script and style elements are stripped, whitespace is collapsed, and the
// result is truncated to MaxPageContentLength characters.
func FetchURLContent(ctx context.Context, url string) (string, error) {
	// Create HTTP request with context
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")

	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: FetchTimeout,
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	// Parse HTML
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	content := ExtractPageText(doc)
	if content == "" {
		return "", fmt.Errorf("no readable content found at %s", url)
	}

	log.Printf("Fetched %s: extracted %d characters", url, len(content))

	return content, nil
}

// ExtractPageText pulls the visible text out of a parsed HTML document.
// Non-content elements are removed first so navigation chrome and inline
// scripts don't pollute the extracted text.
func ExtractPageText(doc *goquery.Document) string {
	// Remove elements that never carry readable content
	doc.Find("script, style, noscript, iframe, svg").Remove()

	// Prefer the main content region when the page marks one
	selection := doc.Find("main, article").First()
	if selection.Length() == 0 {
		selection = doc.Find("body")
	}

	text := selection.Text()

	// Collapse runs of whitespace into single spaces
	fields := strings.Fields(text)
	text = strings.Join(fields, " ")

	// Truncate overly long pages
	if len(text) > MaxPageContentLength {
		text = text[:MaxPageContentLength]
	}

	return text
}
