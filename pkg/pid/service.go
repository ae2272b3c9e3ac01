package pid

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/oceanobs/seaportal/pkg/store"
)

// pidLocation is where issued identifiers live.
const pidLocation = "pid"

// Record is one issued identifier with its certificate.
type Record struct {
	DOI         string    `json:"doi"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Draft       bool      `json:"draft"`
	CreatedAt   time.Time `json:"created_at"`
	Payload     Payload   `json:"payload"`
	Certificate string    `json:"certificate"`
}

// Service mints identifiers and keeps their certificates.
type Service struct {
	backend  store.Backend
	registry *Registry
}

// NewService wires the PID service.
func NewService(backend store.Backend, registry *Registry) *Service {
	return &Service{backend: backend, registry: registry}
}

var certificateTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Dataset identifier {{.DOI}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>Identifier: <a href="https://doi.org/{{.DOI}}">{{.DOI}}</a>{{if .Draft}} (draft){{end}}</p>
<p>Issued to {{.Email}} on {{.Issued}}.</p>
<p>Publisher: {{.Publisher}}, {{.Year}}.</p>
<p>Dataset: <a href="{{.URL}}">{{.URL}}</a></p>
</body>
</html>
`))

// Create validates the payload, registers the DOI and stores the
// certificate. Without a configured registry the identifier is a local
// draft under the same prefix.
func (s *Service) Create(ctx context.Context, username, email string, p Payload) (Record, error) {
	if err := p.Validate(); err != nil {
		return Record{}, err
	}

	record := Record{
		Email:     email,
		Username:  username,
		CreatedAt: time.Now().UTC(),
		Payload:   p,
	}
	if s.registry.Configured() {
		doi, err := s.registry.Register(ctx, p)
		if err != nil {
			return Record{}, err
		}
		record.DOI = doi
	} else {
		record.DOI = fmt.Sprintf("%s/draft-%012x", s.registry.Prefix(), xxhash.Sum64String(email+record.CreatedAt.String())&0xffffffffffff)
		record.Draft = true
	}

	cert, err := s.renderCertificate(record)
	if err != nil {
		return Record{}, err
	}
	record.Certificate = cert

	if _, err := store.PutJSONDocument(ctx, s.backend, pidLocation, recordID(record.DOI), record); err != nil {
		return Record{}, fmt.Errorf("store PID record: %w", err)
	}
	return record, nil
}

// Get fetches one record by DOI.
func (s *Service) Get(ctx context.Context, doi string) (Record, error) {
	var r Record
	if err := store.GetJSONDocument(ctx, s.backend, pidLocation, recordID(doi), &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// FindByEmail returns every identifier issued to an address.
func (s *Service) FindByEmail(ctx context.Context, email string) ([]Record, error) {
	docs, err := s.backend.SearchDocuments(ctx, pidLocation, "email", email)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(docs))
	for id := range docs {
		var r Record
		if err := store.GetJSONDocument(ctx, s.backend, pidLocation, id, &r); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Service) renderCertificate(r Record) (string, error) {
	title := ""
	if len(r.Payload.Titles) > 0 {
		title = r.Payload.Titles[0].Title
	}
	var buf bytes.Buffer
	err := certificateTemplate.Execute(&buf, struct {
		DOI, Title, Email, Issued, Publisher, URL string
		Year                                      int
		Draft                                     bool
	}{
		DOI:       r.DOI,
		Title:     title,
		Email:     r.Email,
		Issued:    r.CreatedAt.Format("2006-01-02"),
		Publisher: r.Payload.Publisher,
		URL:       r.Payload.URL,
		Year:      r.Payload.PublicationYear,
		Draft:     r.Draft,
	})
	if err != nil {
		return "", fmt.Errorf("render certificate: %w", err)
	}
	return buf.String(), nil
}

// recordID flattens a DOI into a document id.
func recordID(doi string) string {
	return strings.ReplaceAll(doi, "/", "_")
}
