package provider

import (
	"context"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/sony/gobreaker"
	"google.golang.org/api/people/v1"
)

const (
	providerPeople   = "google_people"
	personFields     = "names,emailAddresses,phoneNumbers,photos"
	connectionsLimit = 1000
)

// PeopleDirectory implements out.ContactDirectory over people/me/connections.
type PeopleDirectory struct {
	auth *GoogleAuth
	cb   *gobreaker.CircuitBreaker
}

func NewPeopleDirectory(auth *GoogleAuth) *PeopleDirectory {
	return &PeopleDirectory{
		auth: auth,
		cb:   newBreaker("people-api"),
	}
}

func (d *PeopleDirectory) ListConnections(ctx context.Context, cred *domain.OAuthCredential, pageToken string) (*out.ContactPage, error) {
	ts, err := d.auth.TokenSource(ctx, providerPeople, cred)
	if err != nil {
		return nil, err
	}
	svc, err := people.NewService(ctx, d.auth.ClientOption(ts))
	if err != nil {
		return nil, wrapError(providerPeople, err, "failed to create client")
	}

	call := svc.People.Connections.List("people/me").
		PersonFields(personFields).
		PageSize(connectionsLimit).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	var resp *people.ListConnectionsResponse
	cbErr := executeWithCircuitBreaker(d.cb, "ListConnections", func() error {
		var apiErr error
		resp, apiErr = call.Do()
		return apiErr
	})
	if cbErr != nil {
		return nil, wrapError(providerPeople, cbErr, "failed to list connections")
	}

	page := &out.ContactPage{
		Contacts:      make([]*domain.Contact, 0, len(resp.Connections)),
		NextPageToken: resp.NextPageToken,
	}
	for _, p := range resp.Connections {
		page.Contacts = append(page.Contacts, convertPerson(p))
	}
	return page, nil
}

// convertPerson prefers the fields flagged primary, else the first entry.
func convertPerson(p *people.Person) *domain.Contact {
	c := &domain.Contact{ContactID: p.ResourceName}

	if n := primaryName(p.Names); n != nil {
		c.DisplayName = n.DisplayName
		c.GivenName = n.GivenName
		c.FamilyName = n.FamilyName
	}
	for i, e := range p.EmailAddresses {
		if i == 0 || (e.Metadata != nil && e.Metadata.Primary) {
			c.PrimaryEmail = e.Value
		}
		if e.Metadata != nil && e.Metadata.Primary {
			break
		}
	}
	if len(p.PhoneNumbers) > 0 {
		c.Phone = p.PhoneNumbers[0].Value
	}
	for _, ph := range p.Photos {
		if !ph.Default {
			c.PhotoURL = ph.Url
			break
		}
	}
	return c
}

func primaryName(names []*people.Name) *people.Name {
	for _, n := range names {
		if n.Metadata != nil && n.Metadata.Primary {
			return n
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return nil
}

var _ out.ContactDirectory = (*PeopleDirectory)(nil)
