// Package identity implements the IdentifierParser port for the identifier
// schemes the engine accepts: DIDs and SPIFFE IDs.
package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spiffe/go-spiffe/v2/spiffeid"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// MaxDIDLength bounds the length of a DID string.
const MaxDIDLength = 2048

// didPattern follows the W3C DID syntax: a lowercase method name and a
// method-specific id that must not end with a colon.
var didPattern = regexp.MustCompile(`^did:[a-z0-9]+:[a-zA-Z0-9._:%-]*[a-zA-Z0-9._-]$`)

// Parser implements the IdentifierParser port.
//
// DIDs are checked against the DID syntax. SPIFFE IDs are parsed with the
// go-spiffe SDK, which enforces the scheme, a DNS trust domain and path
// normalization. Any other scheme is rejected.
//
// Concurrency: Safe for concurrent use (stateless, pure functions).
type Parser struct{}

// NewParser creates a new identifier parser
func NewParser() ports.IdentifierParser {
	return &Parser{}
}

// ParseIdentifier validates s and returns it as an identifier.
//
// Error handling:
//   - Returns domain.ErrInvalidIdentifier (wrapped with %w) for all failures
func (p *Parser) ParseIdentifier(s string) (domain.Identifier, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: empty input", domain.ErrInvalidIdentifier)
	}
	if s != strings.TrimSpace(s) {
		return "", fmt.Errorf("%w: %q has surrounding whitespace", domain.ErrInvalidIdentifier, s)
	}

	switch {
	case strings.HasPrefix(s, "did:"):
		if len(s) > MaxDIDLength {
			return "", fmt.Errorf("%w: DID longer than %d characters", domain.ErrInvalidIdentifier, MaxDIDLength)
		}
		if !didPattern.MatchString(s) {
			return "", fmt.Errorf("%w: %q is not a valid DID", domain.ErrInvalidIdentifier, s)
		}
		return domain.Identifier(s), nil

	case strings.HasPrefix(s, "spiffe://"):
		id, err := spiffeid.FromString(s)
		if err != nil {
			return "", fmt.Errorf("%w: parse SPIFFE ID: %w", domain.ErrInvalidIdentifier, err)
		}
		return domain.Identifier(id.String()), nil

	default:
		return "", fmt.Errorf("%w: %q uses an unsupported scheme (want did: or spiffe://)", domain.ErrInvalidIdentifier, s)
	}
}

var _ ports.IdentifierParser = (*Parser)(nil)
