// Package snapshot reads, writes, and edits saved ownership calculations.
//
// A calculation is the full input of the engine together with a little
// metadata:
//
//	{
//	  "version": 1,
//	  "meta": {"name": "Q3 structure", "createdAt": "2025-01-02T10:00:00Z"},
//	  "entities":   [{"id": "a", "name": "Alpha Holdings"}],
//	  "objects":    [{"id": "1", "name": "Site A"}],
//	  "ownerships": [{"id": "entity:a->object:1", "owner": {"kind": "entity", "id": "a"}, "objectId": "1", "percent": 42}]
//	}
//
// Parse accepts the document as JSON or YAML. Marshal always writes indented JSON.
package snapshot

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"

	"github.com/Stoky555/ownership-graph/pkg/model"
)

// FormatVersion is the only document version Parse accepts.
const FormatVersion = 1

// Meta is optional descriptive information about a calculation.
type Meta struct {
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Calculation is a saved ownership network.
type Calculation struct {
	Version    int                 `json:"version"`
	Meta       *Meta               `json:"meta,omitempty"`
	Entities   []model.Entity      `json:"entities" validate:"dive"`
	Objects    []model.OwnedObject `json:"objects" validate:"dive"`
	Ownerships []model.Ownership   `json:"ownerships" validate:"dive"`
}

// New returns an empty calculation stamped with name and creation time.
func New(name string, now time.Time) Calculation {
	return Calculation{
		Version:    FormatVersion,
		Meta:       &Meta{Name: name, CreatedAt: now.UTC().Format(time.RFC3339)},
		Entities:   []model.Entity{},
		Objects:    []model.OwnedObject{},
		Ownerships: []model.Ownership{},
	}
}

// Name returns the calculation's display name, or "" when it has none.
func (c Calculation) Name() string {
	if c.Meta == nil {
		return ""
	}
	return c.Meta.Name
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Parse decodes and validates a calculation document.
//
// Checks run in order and the first failing one is reported: the version must
// be present and equal FormatVersion, the three arrays must be present, and
// every record must pass field validation. Referential integrity is not
// checked here; see CheckReferences.
func Parse(data []byte) (Calculation, error) {
	doc, err := yaml.YAMLToJSON(data)
	if err != nil {
		return Calculation{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var head struct {
		Version any `json:"version"`
	}
	if err := json.Unmarshal(doc, &head); err != nil {
		return Calculation{}, ErrUnsupportedVersion
	}
	if v, ok := head.Version.(float64); !ok || v != FormatVersion {
		return Calculation{}, ErrUnsupportedVersion
	}

	var raw struct {
		Meta       json.RawMessage `json:"meta"`
		Entities   json.RawMessage `json:"entities"`
		Objects    json.RawMessage `json:"objects"`
		Ownerships json.RawMessage `json:"ownerships"`
	}
	if err := json.Unmarshal(doc, &raw); err != nil {
		return Calculation{}, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}
	arrays := []struct {
		field string
		msg   json.RawMessage
	}{
		{"entities", raw.Entities},
		{"objects", raw.Objects},
		{"ownerships", raw.Ownerships},
	}
	for _, a := range arrays {
		if !isArray(a.msg) {
			return Calculation{}, fmt.Errorf("%w: %s must be an array", ErrInvalidStructure, a.field)
		}
	}

	calc := Calculation{Version: FormatVersion}
	if err := decodeInto(raw.Entities, &calc.Entities); err != nil {
		return Calculation{}, err
	}
	if err := decodeInto(raw.Objects, &calc.Objects); err != nil {
		return Calculation{}, err
	}
	if err := decodeInto(raw.Ownerships, &calc.Ownerships); err != nil {
		return Calculation{}, err
	}
	if len(raw.Meta) > 0 && string(raw.Meta) != "null" {
		calc.Meta = &Meta{}
		if err := decodeInto(raw.Meta, calc.Meta); err != nil {
			return Calculation{}, err
		}
	}

	if err := Validate(calc); err != nil {
		return Calculation{}, err
	}
	return calc, nil
}

// Validate runs field validation over every record of calc.
func Validate(calc Calculation) error {
	err := validate.Struct(calc)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Calculation.")
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
}

func decodeInto(msg json.RawMessage, dst any) error {
	if err := json.Unmarshal(msg, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func isArray(msg json.RawMessage) bool {
	s := strings.TrimSpace(string(msg))
	return strings.HasPrefix(s, "[")
}

// Marshal encodes calc as indented JSON. Nil record slices are written as
// empty arrays so the output always parses back.
func Marshal(calc Calculation) ([]byte, error) {
	calc = normalize(calc)
	return json.MarshalIndent(calc, "", "  ")
}

// MarshalYAML encodes calc as YAML.
func MarshalYAML(calc Calculation) ([]byte, error) {
	return yaml.Marshal(normalize(calc))
}

func normalize(calc Calculation) Calculation {
	if calc.Version == 0 {
		calc.Version = FormatVersion
	}
	if calc.Entities == nil {
		calc.Entities = []model.Entity{}
	}
	if calc.Objects == nil {
		calc.Objects = []model.OwnedObject{}
	}
	if calc.Ownerships == nil {
		calc.Ownerships = []model.Ownership{}
	}
	return calc
}

// DefaultFilename returns the export filename for a calculation saved at t,
// e.g. "ownership-calc-2025-01-02-10-00-00.json".
func DefaultFilename(t time.Time) string {
	return "ownership-calc-" + t.UTC().Format("2006-01-02-15-04-05") + ".json"
}
