// Package botname normalizes hummingbot container names such as
// "hummingbot-alpha-2024.05.01_10.00" for display.
package botname

import (
	"fmt"
	"regexp"
)

var (
	extractRe  = regexp.MustCompile(`hummingbot-([^_]+)-\d{4}\.\d{2}\.\d{2}_\d{2}\.\d{2}`)
	beautifyRe = regexp.MustCompile(`hummingbot-(.+)-`)
)

// Extract returns the bot name embedded in a dated container name.
func Extract(container string) (string, error) {
	m := extractRe.FindStringSubmatch(container)
	if m == nil {
		return "", fmt.Errorf("no bot name in %q", container)
	}
	return m[1], nil
}

// Beautify strips the "hummingbot-" prefix and the trailing suffix after the
// last dash. Names that do not match are returned unchanged.
func Beautify(container string) string {
	m := beautifyRe.FindStringSubmatch(container)
	if m == nil {
		return container
	}
	return m[1]
}

// Display is the name shown in chat: the extracted name when the container
// name is dated, the beautified name otherwise.
func Display(container string) string {
	if name, err := Extract(container); err == nil {
		return name
	}
	return Beautify(container)
}
