// Package contact resolves a recipient hint to ranked directory candidates.
package contact

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"
	"inboxiq/pkg/logger"

	"github.com/agnivade/levenshtein"
)

const (
	DefaultMinScore   = 0.6
	DefaultMaxResults = 5

	exactScore     = 1.0
	substringScore = 0.9

	// maxRemotePages bounds a runaway page-token loop from the directory.
	maxRemotePages = 50
)

type Config struct {
	MinScore   float64
	MaxResults int
}

// Matcher searches the remote directory first and falls back to the local cache.
type Matcher struct {
	directory out.ContactDirectory
	cache     out.ContactCache
	minScore  float64
	limit     int
}

func NewMatcher(directory out.ContactDirectory, cache out.ContactCache, cfg Config) *Matcher {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > DefaultMaxResults {
		cfg.MaxResults = DefaultMaxResults
	}
	return &Matcher{directory: directory, cache: cache, minScore: cfg.MinScore, limit: cfg.MaxResults}
}

// Search returns at most MaxResults candidates, highest confidence first.
// It never fails because of the directory; only a broken cache on the
// fallback path is reported.
func (m *Matcher) Search(ctx context.Context, identity *domain.Identity, terms []string) ([]domain.ContactCandidate, error) {
	terms = normalizeTerms(terms)
	if len(terms) == 0 || identity == nil {
		return []domain.ContactCandidate{}, nil
	}
	log := logger.WithContext(ctx).WithField("user_id", identity.UserID.String())

	if hit := m.exactCacheHit(ctx, identity, terms, log); hit != nil {
		return []domain.ContactCandidate{*hit}, nil
	}

	contacts, source, err := m.load(ctx, identity, log)
	if err != nil {
		return nil, err
	}

	results := m.rank(contacts, terms, source)
	log.WithFields(map[string]any{"terms": len(terms), "source": string(source), "results": len(results)}).
		Debug("contact search done")
	return results, nil
}

func (m *Matcher) exactCacheHit(ctx context.Context, identity *domain.Identity, terms []string, log *logger.Logger) *domain.ContactCandidate {
	if m.cache == nil {
		return nil
	}
	for _, term := range terms {
		if !domain.IsValidEmail(term) {
			continue
		}
		c, err := m.cache.GetByEmail(ctx, identity.UserID, term)
		if err != nil {
			log.WithError(err).Warn("contact cache lookup failed")
			continue
		}
		if c.Usable() {
			return &domain.ContactCandidate{Contact: *c, Confidence: exactScore, Source: domain.ContactSourceCache}
		}
	}
	return nil
}

// load pulls the full remote listing when the credential allows it and
// degrades to the cache otherwise.
func (m *Matcher) load(ctx context.Context, identity *domain.Identity, log *logger.Logger) ([]*domain.Contact, domain.ContactSource, error) {
	if m.directory != nil && identity.CredentialValid() {
		contacts, err := m.listRemote(ctx, identity.Credential)
		if err == nil {
			m.writeBack(ctx, identity, contacts, log)
			return contacts, domain.ContactSourceRemote, nil
		}
		log.WithError(err).Warn("contact directory unavailable, using cache")
	}

	if m.cache == nil {
		return nil, domain.ContactSourceCache, nil
	}
	contacts, err := m.cache.List(ctx, identity.UserID)
	if err != nil {
		return nil, domain.ContactSourceCache, err
	}
	return contacts, domain.ContactSourceCache, nil
}

func (m *Matcher) listRemote(ctx context.Context, cred *domain.OAuthCredential) ([]*domain.Contact, error) {
	var all []*domain.Contact
	token := ""
	for page := 0; page < maxRemotePages; page++ {
		res, err := m.directory.ListConnections(ctx, cred, token)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Contacts...)
		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
	}
	return all, nil
}

func (m *Matcher) writeBack(ctx context.Context, identity *domain.Identity, contacts []*domain.Contact, log *logger.Logger) {
	if m.cache == nil {
		return
	}
	usable := make([]*domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.Usable() {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return
	}
	if err := m.cache.UpsertMany(ctx, identity.UserID, usable); err != nil {
		log.WithError(err).Warn("contact cache write-back failed")
	}
}

func (m *Matcher) rank(contacts []*domain.Contact, terms []string, source domain.ContactSource) []domain.ContactCandidate {
	scored := make([]domain.ContactCandidate, 0)
	for _, c := range contacts {
		if !c.Usable() {
			continue
		}
		score := Score(c, terms)
		if score < m.minScore {
			continue
		}
		scored = append(scored, domain.ContactCandidate{Contact: *c, Confidence: score, Source: source})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Confidence > scored[j].Confidence })

	seen := make(map[string]bool, len(scored))
	results := make([]domain.ContactCandidate, 0, m.limit)
	for _, cand := range scored {
		key := cand.EmailKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		results = append(results, cand)
		if len(results) == m.limit {
			break
		}
	}
	return results
}

// Score is the best match of any term against the contact's name and email.
// An exact email match ends scoring at 1.0.
func Score(c *domain.Contact, terms []string) float64 {
	name := strings.ToLower(strings.TrimSpace(c.DisplayName))
	email := c.EmailKey()

	best := 0.0
	for _, term := range terms {
		t := strings.ToLower(term)
		if t == email {
			return exactScore
		}
		var s float64
		switch {
		case t == name:
			s = exactScore
		case strings.Contains(name, t) || strings.Contains(email, t):
			s = substringScore
		default:
			s = max(similarity(t, name), similarity(t, email))
		}
		if s > best {
			best = s
		}
	}
	return best
}

// similarity is 1 - distance/longer length over runes.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longer := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longer)
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
