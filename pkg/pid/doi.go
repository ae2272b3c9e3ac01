// Package pid mints persistent identifiers for datasets served by the
// portal and keeps the issued certificates on record.
package pid

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Creator is one dataset author.
type Creator struct {
	Name     string `json:"name" validate:"required"`
	NameType string `json:"nameType" validate:"required,oneof=Organizational Personal"`
}

// Title is one dataset title. The main title carries no titleType.
type Title struct {
	Title     string `json:"title" validate:"required"`
	TitleType string `json:"titleType,omitempty" validate:"omitempty,oneof=AlternativeTitle Subtitle TranslatedTitle Other"`
}

// ResourceType classifies the dataset.
type ResourceType struct {
	ResourceType        string `json:"resourceType" validate:"required"`
	ResourceTypeGeneral string `json:"resourceTypeGeneral" validate:"required,oneof=Audiovisual Collection DataPaper Dataset Event Image InteractiveResource Model PhysicalObject Service Software Sound Text Workflow Other"`
}

// Payload is the metadata a DOI registration carries.
type Payload struct {
	Creators        []Creator    `json:"creators" validate:"required,min=1,dive"`
	Titles          []Title      `json:"titles" validate:"required,min=1,dive"`
	Publisher       string       `json:"publisher" validate:"required"`
	PublicationYear int          `json:"publicationYear" validate:"required,gte=1900,lte=2100"`
	Types           ResourceType `json:"types" validate:"required"`
	URL             string       `json:"url" validate:"required,url"`
}

var validate = validator.New()

// Validate checks the payload against the registration schema.
func (p Payload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid DOI payload: %w", err)
	}
	return nil
}
