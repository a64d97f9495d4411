// Package token mints and verifies time-boxed, capability-scoped access
// grants for direct object-store access. A grant is a query-string suffix
// "se=<expiry>&sig=<signed token>" appended to an object URL; the signed part
// is an HMAC JWT carrying the container, the permission set, and the validity
// window. Grants are pure functions of the shared secret; nothing is
// persisted.
package token

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidGrant is returned when a grant fails signature or claim checks.
var ErrInvalidGrant = errors.New("invalid access grant")

// grantPattern recognizes a URL carrying an access grant: a signed-expiry
// marker followed by a signature. The same pattern classifies
// transient-generated URLs, so it is shared with the source resolver.
var grantPattern = regexp.MustCompile(`\?se=[^&]+&sig=[^&]+`)

// Permissions is the capability set of a grant.
type Permissions struct {
	Read   bool
	Write  bool
	Delete bool
	List   bool
}

// ReadOnly is the permission set appended to URLs handed to consumers that
// only fetch bytes (embedding service, zip export).
var ReadOnly = Permissions{Read: true}

// String encodes the permission set as a compact flag string ("rwdl" order).
func (p Permissions) String() string {
	var b strings.Builder
	if p.Read {
		b.WriteByte('r')
	}
	if p.Write {
		b.WriteByte('w')
	}
	if p.Delete {
		b.WriteByte('d')
	}
	if p.List {
		b.WriteByte('l')
	}
	return b.String()
}

// ParsePermissions decodes a flag string produced by String.
func ParsePermissions(s string) Permissions {
	return Permissions{
		Read:   strings.ContainsRune(s, 'r'),
		Write:  strings.ContainsRune(s, 'w'),
		Delete: strings.ContainsRune(s, 'd'),
		List:   strings.ContainsRune(s, 'l'),
	}
}

// grantClaims is the JWT payload of a grant. Subject holds the container.
type grantClaims struct {
	Permissions string `json:"sp"`
	jwt.RegisteredClaims
}

// Issuer mints grants from a container-level shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	skew   time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// DefaultTTL is the validity of object-access grants.
const DefaultTTL = 24 * time.Hour

// clockSkew backdates the validity start so a consumer with a slightly
// slow clock does not reject a freshly minted grant.
const clockSkew = time.Minute

// NewIssuer creates an issuer. A zero ttl selects DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		skew:   clockSkew,
		now:    time.Now,
	}
}

// Grant mints a query-string grant for the container with the given
// permission set. The validity window starts slightly in the past and
// expires after the issuer's TTL.
func (i *Issuer) Grant(container string, perms Permissions) (string, error) {
	now := i.now().UTC()
	expiry := now.Add(i.ttl)

	claims := grantClaims{
		Permissions: perms.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   container,
			NotBefore: jwt.NewNumericDate(now.Add(-i.skew)),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign grant: %w", err)
	}

	q := url.Values{}
	q.Set("se", fmt.Sprintf("%d", expiry.Unix()))
	q.Set("sig", signed)
	// Fixed order so the grant pattern stays recognizable.
	return fmt.Sprintf("se=%s&sig=%s", q.Get("se"), url.QueryEscape(q.Get("sig"))), nil
}

// Verify checks a grant query string against the container and returns the
// granted permission set. Expired, backdated-beyond-skew, or tampered grants
// fail with ErrInvalidGrant.
func (i *Issuer) Verify(grant, container string) (Permissions, error) {
	vals, err := url.ParseQuery(grant)
	if err != nil {
		return Permissions{}, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
	}
	sig := vals.Get("sig")
	if sig == "" {
		return Permissions{}, fmt.Errorf("%w: missing signature", ErrInvalidGrant)
	}

	var claims grantClaims
	_, err = jwt.ParseWithClaims(sig, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return Permissions{}, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
	}
	if claims.Subject != container {
		return Permissions{}, fmt.Errorf("%w: grant is for container %q", ErrInvalidGrant, claims.Subject)
	}
	return ParsePermissions(claims.Permissions), nil
}

// Append attaches a grant to an object URL. URLs that already carry a grant
// are returned unchanged to avoid double-appending.
func (i *Issuer) Append(rawURL, container string, perms Permissions) (string, error) {
	if HasGrant(rawURL) {
		return rawURL, nil
	}
	grant, err := i.Grant(container, perms)
	if err != nil {
		return "", err
	}
	return rawURL + "?" + grant, nil
}

// HasGrant reports whether the URL already carries an access grant. The same
// marker distinguishes transient tokened paths from durable untokened ones.
func HasGrant(rawURL string) bool {
	return grantPattern.MatchString(rawURL)
}

// Strip removes any query string, returning the bare canonical URL.
func Strip(rawURL string) string {
	if idx := strings.IndexByte(rawURL, '?'); idx >= 0 {
		return rawURL[:idx]
	}
	return rawURL
}
