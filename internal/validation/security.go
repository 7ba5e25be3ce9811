// Package validation guards the values mailwright hands to external programs,
// browsers and mail servers.
package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"path/filepath"
	"strings"
)

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}

// ValidateArgument rejects command line arguments carrying shell
// metacharacters or directory traversal.
func ValidateArgument(arg string) error {
	for _, char := range dangerousChars {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %q", char)
		}
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	return nil
}

// ValidateCommand checks command against an allowlist of program names.
// The command may be a bare name or a path whose base name is allowed, such
// as node_modules/.bin/mjml.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	base := filepath.Base(command)
	if !allowedCommands[base] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateOrigin checks a websocket Origin header against the allowed hosts.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}

// ValidateAddress parses an RFC 5322 address such as
// `"Preview" <from@example.com>`.
func ValidateAddress(address string) (*mail.Address, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}
	if strings.ContainsAny(address, "\r\n") {
		return nil, fmt.Errorf("address contains a line break")
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	return parsed, nil
}
