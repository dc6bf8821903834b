package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/google/uuid"
)

type fakeDirectory struct {
	pages [][]*domain.Contact
	err   error
	calls int
}

func (f *fakeDirectory) ListConnections(_ context.Context, _ *domain.OAuthCredential, token string) (*out.ContactPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	idx := 0
	if token != "" {
		fmt.Sscanf(token, "page-%d", &idx)
	}
	page := &out.ContactPage{}
	if idx < len(f.pages) {
		page.Contacts = f.pages[idx]
	}
	if idx+1 < len(f.pages) {
		page.NextPageToken = fmt.Sprintf("page-%d", idx+1)
	}
	return page, nil
}

type fakeCache struct {
	contacts  []*domain.Contact
	upserted  []*domain.Contact
	listErr   error
	listCalls int
	upsertErr error
}

func (f *fakeCache) GetByEmail(_ context.Context, _ uuid.UUID, email string) (*domain.Contact, error) {
	for _, c := range f.contacts {
		if strings.EqualFold(c.PrimaryEmail, email) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCache) List(_ context.Context, _ uuid.UUID) ([]*domain.Contact, error) {
	f.listCalls++
	return f.contacts, f.listErr
}

func (f *fakeCache) UpsertMany(_ context.Context, _ uuid.UUID, contacts []*domain.Contact) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, contacts...)
	return nil
}

func connected() *domain.Identity {
	return &domain.Identity{
		UserID:      uuid.New(),
		DisplayName: "Alex",
		Credential:  &domain.OAuthCredential{IsConnected: true, RefreshToken: "refresh"},
	}
}

func disconnected() *domain.Identity {
	return &domain.Identity{UserID: uuid.New(), DisplayName: "Alex"}
}

func person(name, email string) *domain.Contact {
	return &domain.Contact{ContactID: "people/" + email, DisplayName: name, PrimaryEmail: email}
}

func TestSearchRanksExactNameFirst(t *testing.T) {
	dir := &fakeDirectory{pages: [][]*domain.Contact{{
		person("Jane D.", "jane@x.com"),
		person("Jane Doe", "j@x.com"),
	}}}
	m := NewMatcher(dir, &fakeCache{}, Config{})

	got, err := m.Search(context.Background(), connected(), []string{"Jane Doe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].DisplayName != "Jane Doe" || got[0].Confidence != 1.0 {
		t.Errorf("expected Jane Doe at 1.0 first, got %s at %v", got[0].DisplayName, got[0].Confidence)
	}
	if got[1].PrimaryEmail != "jane@x.com" || got[1].Confidence < DefaultMinScore {
		t.Errorf("expected jane@x.com above threshold, got %s at %v", got[1].PrimaryEmail, got[1].Confidence)
	}
	if got[0].Source != domain.ContactSourceRemote {
		t.Errorf("expected remote source, got %s", got[0].Source)
	}
}

func TestSearchSurvivesCacheWriteFailure(t *testing.T) {
	dir := &fakeDirectory{pages: [][]*domain.Contact{{person("Jane Doe", "jane@x.com")}}}
	cache := &fakeCache{upsertErr: errors.New("cache unavailable")}
	m := NewMatcher(dir, cache, Config{})

	got, err := m.Search(context.Background(), connected(), []string{"Jane Doe"})
	if err != nil {
		t.Fatalf("expected search to succeed despite cache write failure, got %v", err)
	}
	if len(got) != 1 || got[0].PrimaryEmail != "jane@x.com" || got[0].Source != domain.ContactSourceRemote {
		t.Errorf("expected remote result, got %+v", got)
	}
	if len(cache.upserted) != 0 {
		t.Errorf("expected nothing stored, got %d", len(cache.upserted))
	}
}

func TestSearchExactEmailUsesCache(t *testing.T) {
	dir := &fakeDirectory{}
	cache := &fakeCache{contacts: []*domain.Contact{person("Jane Doe", "jane@example.com")}}
	m := NewMatcher(dir, cache, Config{})

	got, err := m.Search(context.Background(), connected(), []string{"Jane@Example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Confidence != 1.0 || got[0].Source != domain.ContactSourceCache {
		t.Fatalf("expected single exact cache hit, got %+v", got)
	}
	if dir.calls != 0 {
		t.Errorf("expected no directory calls, got %d", dir.calls)
	}
}

func TestSearchFallsBackToCache(t *testing.T) {
	tests := []struct {
		name     string
		identity *domain.Identity
		dirErr   error
		dirCalls int
	}{
		{"remote error", connected(), out.NewProviderError("people", out.ProviderErrServer, "boom", nil, true), 1},
		{"no credential", disconnected(), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &fakeDirectory{err: tt.dirErr, pages: [][]*domain.Contact{{person("Bob Remote", "bob@remote.io")}}}
			cache := &fakeCache{contacts: []*domain.Contact{person("Bob Cached", "bob@cache.io")}}
			m := NewMatcher(dir, cache, Config{})

			got, err := m.Search(context.Background(), tt.identity, []string{"Bob"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(got) != 1 || got[0].PrimaryEmail != "bob@cache.io" {
				t.Fatalf("expected cached Bob, got %+v", got)
			}
			if got[0].Source != domain.ContactSourceCache {
				t.Errorf("expected cache source, got %s", got[0].Source)
			}
			if dir.calls != tt.dirCalls {
				t.Errorf("expected %d directory calls, got %d", tt.dirCalls, dir.calls)
			}
		})
	}
}

func TestSearchCacheErrorOnFallback(t *testing.T) {
	cache := &fakeCache{listErr: errors.New("db down")}
	m := NewMatcher(nil, cache, Config{})

	if _, err := m.Search(context.Background(), disconnected(), []string{"Bob"}); err == nil {
		t.Error("expected cache error to surface")
	}
}

func TestSearchDedupAndLimit(t *testing.T) {
	contacts := []*domain.Contact{
		person("Sam Lee", "sam@x.com"),
		person("Sam Lee (work)", "SAM@X.COM"),
		person("Sam Park", "park@x.com"),
		person("Samantha Wu", "wu@x.com"),
		person("Sam Ortiz", "ortiz@x.com"),
		person("Sam Kim", "kim@x.com"),
		person("Sam Diaz", "diaz@x.com"),
		{DisplayName: "Sam NoEmail"},
	}
	m := NewMatcher(&fakeDirectory{pages: [][]*domain.Contact{contacts}}, &fakeCache{}, Config{})

	got, err := m.Search(context.Background(), connected(), []string{"Sam"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != DefaultMaxResults {
		t.Fatalf("expected %d results, got %d", DefaultMaxResults, len(got))
	}
	seen := map[string]bool{}
	for _, c := range got {
		key := strings.ToLower(c.PrimaryEmail)
		if seen[key] {
			t.Errorf("duplicate email %s", key)
		}
		seen[key] = true
	}
	if got[0].DisplayName != "Sam Lee" {
		t.Errorf("expected first occurrence to win, got %s", got[0].DisplayName)
	}
	want := []string{"sam@x.com", "park@x.com", "wu@x.com", "ortiz@x.com", "kim@x.com"}
	for i, email := range want {
		if got[i].PrimaryEmail != email {
			t.Errorf("position %d: expected %s, got %s", i, email, got[i].PrimaryEmail)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Errorf("results not sorted at %d", i)
		}
	}
}

func TestSearchPaginatesAndWritesBack(t *testing.T) {
	dir := &fakeDirectory{pages: [][]*domain.Contact{
		{person("Ana Silva", "ana@x.com"), {DisplayName: "", PrimaryEmail: "ghost@x.com"}},
		{person("Ana Costa", "costa@x.com")},
	}}
	cache := &fakeCache{}
	m := NewMatcher(dir, cache, Config{})

	got, err := m.Search(context.Background(), connected(), []string{"Ana"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.calls != 2 {
		t.Errorf("expected 2 page fetches, got %d", dir.calls)
	}
	if len(got) != 2 {
		t.Errorf("expected both pages searched, got %d results", len(got))
	}
	if len(cache.upserted) != 2 {
		t.Errorf("expected 2 usable contacts written back, got %d", len(cache.upserted))
	}
}

func TestSearchDropsBelowThreshold(t *testing.T) {
	dir := &fakeDirectory{pages: [][]*domain.Contact{{person("Zed Quinn", "zq@x.com")}}}
	m := NewMatcher(dir, &fakeCache{}, Config{})

	got, err := m.Search(context.Background(), connected(), []string{"Margaret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %+v", got)
	}
}

func TestSearchEmptyTerms(t *testing.T) {
	dir := &fakeDirectory{}
	m := NewMatcher(dir, &fakeCache{}, Config{})

	got, err := m.Search(context.Background(), connected(), []string{" ", ""})
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty result, got %v, %v", got, err)
	}
	if dir.calls != 0 {
		t.Errorf("expected no directory calls, got %d", dir.calls)
	}
}

func TestScore(t *testing.T) {
	c := person("Jane Doe", "jane.doe@example.com")
	tests := []struct {
		terms    []string
		expected float64
	}{
		{[]string{"jane.doe@example.com"}, 1.0},
		{[]string{"jane doe"}, 1.0},
		{[]string{"Jane"}, 0.9},
		{[]string{"example"}, 0.9},
		{[]string{"Jane Dae", "nobody"}, 0.875},
	}
	for _, tt := range tests {
		if got := Score(c, tt.terms); got != tt.expected {
			t.Errorf("Score(%v): expected %v, got %v", tt.terms, tt.expected, got)
		}
	}
}
