package token

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_GrantVerifyRoundTrip(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	grant, err := iss.Grant("images", Permissions{Read: true, List: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(grant, "se="))
	assert.Contains(t, grant, "&sig=")

	perms, err := iss.Verify(grant, "images")
	require.NoError(t, err)
	assert.True(t, perms.Read)
	assert.True(t, perms.List)
	assert.False(t, perms.Write)
	assert.False(t, perms.Delete)
}

func TestIssuer_VerifyWrongContainer(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	grant, err := iss.Grant("images", ReadOnly)
	require.NoError(t, err)

	_, err = iss.Verify(grant, "other")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestIssuer_VerifyWrongSecret(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	other := NewIssuer("another-secret", time.Hour)

	grant, err := iss.Grant("images", ReadOnly)
	require.NoError(t, err)

	_, err = other.Verify(grant, "images")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestIssuer_VerifyExpired(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	grant, err := iss.Grant("images", ReadOnly)
	require.NoError(t, err)

	// Move the verifier's clock past the expiry.
	iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = iss.Verify(grant, "images")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestIssuer_SkewToleratesSlowClock(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	grant, err := iss.Grant("images", ReadOnly)
	require.NoError(t, err)

	// A consumer 30s behind the issuer is still inside the backdated window.
	iss.now = func() time.Time { return time.Now().Add(-30 * time.Second) }
	_, err = iss.Verify(grant, "images")
	assert.NoError(t, err)
}

func TestHasGrant(t *testing.T) {
	iss := NewIssuer("test-secret", 0)

	url, err := iss.Append("http://host/images/cat.jpg", "images", ReadOnly)
	require.NoError(t, err)
	assert.True(t, HasGrant(url))

	assert.False(t, HasGrant("http://host/images/cat.jpg"))
	assert.False(t, HasGrant("http://host/images/cat.jpg?width=100"))
}

func TestIssuer_AppendIsIdempotent(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	once, err := iss.Append("http://host/images/cat.jpg", "images", ReadOnly)
	require.NoError(t, err)
	twice, err := iss.Append(once, "images", ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestStrip(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	url, err := iss.Append("http://host/images/cat.jpg", "images", ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, "http://host/images/cat.jpg", Strip(url))
	assert.Equal(t, "http://host/images/cat.jpg", Strip("http://host/images/cat.jpg"))
}

func TestPermissions_StringRoundTrip(t *testing.T) {
	p := Permissions{Read: true, Write: true, Delete: true, List: true}
	assert.Equal(t, "rwdl", p.String())
	assert.Equal(t, p, ParsePermissions("rwdl"))
	assert.Equal(t, Permissions{}, ParsePermissions(""))
}

// grantedStore is a fake object store that honors grant permission bits: every
// operation requires a grant for its container carrying the matching bit.
type grantedStore struct {
	issuer    *Issuer
	container string
	objects   map[string][]byte
}

func newGrantedStore(issuer *Issuer, container string) *grantedStore {
	return &grantedStore{issuer: issuer, container: container, objects: map[string][]byte{}}
}

func (s *grantedStore) authorize(grant string, need Permissions) error {
	perms, err := s.issuer.Verify(grant, s.container)
	if err != nil {
		return err
	}
	if need.Read && !perms.Read || need.Write && !perms.Write ||
		need.Delete && !perms.Delete || need.List && !perms.List {
		return fmt.Errorf("insufficient permissions %q", perms)
	}
	return nil
}

func (s *grantedStore) Get(_ context.Context, key, grant string) ([]byte, error) {
	if err := s.authorize(grant, Permissions{Read: true}); err != nil {
		return nil, err
	}
	return s.objects[key], nil
}

func (s *grantedStore) Put(_ context.Context, key string, data []byte, grant string) error {
	if err := s.authorize(grant, Permissions{Write: true}); err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func TestGrant_ScopesStoreAccess(t *testing.T) {
	ctx := context.Background()
	iss := NewIssuer("test-secret", time.Hour)
	fake := newGrantedStore(iss, "images")
	fake.objects["cat.jpg"] = []byte("jpeg bytes")

	readGrant, err := iss.Grant("images", ReadOnly)
	require.NoError(t, err)

	// Read-only grant fetches but cannot write.
	data, err := fake.Get(ctx, "cat.jpg", readGrant)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)
	assert.Error(t, fake.Put(ctx, "dog.jpg", []byte("x"), readGrant))

	// Write grant uploads but cannot read.
	writeGrant, err := iss.Grant("images", Permissions{Write: true})
	require.NoError(t, err)
	require.NoError(t, fake.Put(ctx, "dog.jpg", []byte("x"), writeGrant))
	_, err = fake.Get(ctx, "dog.jpg", writeGrant)
	assert.Error(t, err)

	// A grant for another container opens nothing here.
	foreign, err := iss.Grant("backups", Permissions{Read: true, Write: true})
	require.NoError(t, err)
	_, err = fake.Get(ctx, "cat.jpg", foreign)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}
