package pickup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
)

func TestIssueReusesActiveToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	first, err := f.issuer.Issue(ctx, "Amy", "0911222333")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !first.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("expires_at = %v, want %v", first.ExpiresAt, t0.Add(time.Hour))
	}

	f.clock.Advance(30 * time.Minute)
	second, err := f.issuer.Issue(ctx, "Amy", "0911222333")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if second.Token != first.Token {
		t.Fatalf("token = %s, want reused %s", second.Token, first.Token)
	}

	f.clock.Advance(30 * time.Minute)
	third, err := f.issuer.Issue(ctx, "Amy", "0911222333")
	if err != nil {
		t.Fatalf("issue after expiry: %v", err)
	}
	if third.Token == first.Token {
		t.Fatal("expired token handed out again")
	}
}

func TestResolveRejectsForeignPhone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	amy, err := f.issuer.Issue(ctx, "Amy", "0911222333")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := f.issuer.Issue(ctx, "Amy", "0999888777")
	if err != nil {
		t.Fatalf("issue other phone: %v", err)
	}
	if other.Token == amy.Token {
		t.Fatal("different phone received Amy's token")
	}

	got, err := f.issuer.Resolve(ctx, amy.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Name != "Amy" || got.Phone != "0911222333" {
		t.Fatalf("resolved identity = %+v", got)
	}

	if _, err := f.issuer.Resolve(ctx, "guess"); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Fatalf("unknown token err = %v, want invalid credential", err)
	}
	if _, err := f.issuer.Resolve(ctx, ""); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Fatalf("blank token err = %v, want invalid credential", err)
	}
}

func TestResolveExpiredToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	tok, err := f.issuer.Issue(ctx, "Amy", "0911222333")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	f.clock.Advance(time.Hour - time.Millisecond)
	if _, err := f.issuer.Resolve(ctx, tok.Token); err != nil {
		t.Fatalf("resolve just before expiry: %v", err)
	}
	f.clock.Advance(time.Millisecond)
	if _, err := f.issuer.Resolve(ctx, tok.Token); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Fatalf("err = %v, want invalid credential", err)
	}
}

func TestNewCredentialIssuerDefaultsTTL(t *testing.T) {
	t.Parallel()

	c := NewCredentialIssuer(nil, 0, nil)
	if c.ttl != DefaultCredentialTTL {
		t.Fatalf("ttl = %v, want %v", c.ttl, DefaultCredentialTTL)
	}
	if tok := c.newToken(); len(tok) != 32 {
		t.Fatalf("token %q has length %d, want 32", tok, len(tok))
	}
}
