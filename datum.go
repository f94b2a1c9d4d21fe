package tidepool

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Origin identifies where a datum was produced. The origin identifier is
// what addresses a datum for deletion when the server has not assigned it an
// identifier of its own.
type Origin struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// Datum is a single time-series data point. The typed fields are shared by
// every datum type; type-specific fields (units, values, rates) travel in
// Fields and are flattened into the same JSON object on the wire.
type Datum struct {
	// ID is assigned by the server; empty until the datum has been accepted.
	ID       string         `json:"-"`
	Type     string         `json:"-"`
	Time     time.Time      `json:"-"`
	UploadID string         `json:"-"`
	Origin   *Origin        `json:"-"`
	Fields   map[string]any `json:"-"`
}

// NewDatum creates a datum of the given type with a generated origin
// identifier, so the datum is addressable for deletion before the server
// assigns it an identifier.
func NewDatum(datumType string, at time.Time) Datum {
	return Datum{
		Type:   datumType,
		Time:   at,
		Origin: &Origin{ID: uuid.NewString()},
	}
}

// datumKey* are the JSON keys owned by the typed Datum fields.
const (
	datumKeyID       = "id"
	datumKeyType     = "type"
	datumKeyTime     = "time"
	datumKeyUploadID = "uploadId"
	datumKeyOrigin   = "origin"
)

// MarshalJSON flattens the typed fields and Fields into one object.
func (d Datum) MarshalJSON() ([]byte, error) {
	object := make(map[string]any, len(d.Fields)+5)
	for key, value := range d.Fields {
		object[key] = value
	}
	if d.ID != "" {
		object[datumKeyID] = d.ID
	}
	object[datumKeyType] = d.Type
	object[datumKeyTime] = d.Time
	if d.UploadID != "" {
		object[datumKeyUploadID] = d.UploadID
	}
	if d.Origin != nil {
		object[datumKeyOrigin] = d.Origin
	}
	return json.Marshal(object)
}

// UnmarshalJSON splits an object into the typed fields and Fields.
func (d *Datum) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	take := func(key string, target any) error {
		value, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		return json.Unmarshal(value, target)
	}

	if err := take(datumKeyID, &d.ID); err != nil {
		return err
	}
	if err := take(datumKeyType, &d.Type); err != nil {
		return err
	}
	if err := take(datumKeyTime, &d.Time); err != nil {
		return err
	}
	if err := take(datumKeyUploadID, &d.UploadID); err != nil {
		return err
	}
	if err := take(datumKeyOrigin, &d.Origin); err != nil {
		return err
	}

	if len(raw) > 0 {
		d.Fields = make(map[string]any, len(raw))
		for key, value := range raw {
			var decoded any
			if err := json.Unmarshal(value, &decoded); err != nil {
				return err
			}
			d.Fields[key] = decoded
		}
	}
	return nil
}

// wellFormed reports whether a decoded datum satisfies the minimal schema
// the SDK requires of server records.
func (d *Datum) wellFormed() bool {
	return d.Type != "" && !d.Time.IsZero()
}

// Selector is the minimal key tuple sufficient to address a previously
// accepted datum for deletion. Selectors are derived, read-only values,
// produced only for data successfully round-tripped through the service.
type Selector struct {
	ID     string     `json:"id,omitempty"`
	Type   string     `json:"type,omitempty"`
	Time   *time.Time `json:"time,omitempty"`
	Origin *Origin    `json:"origin,omitempty"`
}

// selectorForDatum derives the deletion selector for an accepted datum. The
// server identifier wins when present; otherwise the origin identifier plus
// type and time address the datum.
func selectorForDatum(d *Datum) (Selector, bool) {
	if d.ID != "" {
		return Selector{ID: d.ID}, true
	}
	if d.Origin != nil && d.Origin.ID != "" {
		at := d.Time
		return Selector{
			Type:   d.Type,
			Time:   &at,
			Origin: &Origin{ID: d.Origin.ID},
		}, true
	}
	return Selector{}, false
}
