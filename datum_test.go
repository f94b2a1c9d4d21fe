package tidepool

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDatum_MarshalFlattensFields(t *testing.T) {
	at := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	datum := Datum{
		Type:   "cbg",
		Time:   at,
		Origin: &Origin{ID: "origin-1"},
		Fields: map[string]any{"value": 5.5, "units": "mmol/L"},
	}

	data, err := json.Marshal(datum)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var object map[string]any
	if err := json.Unmarshal(data, &object); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}

	if object["type"] != "cbg" {
		t.Errorf("type = %v", object["type"])
	}
	if object["value"] != 5.5 {
		t.Errorf("value = %v, want flattened field", object["value"])
	}
	if object["units"] != "mmol/L" {
		t.Errorf("units = %v", object["units"])
	}
	if _, present := object["id"]; present {
		t.Error("empty id should be omitted")
	}
	if _, present := object["fields"]; present {
		t.Error("Fields must flatten, not nest")
	}
}

func TestDatum_UnmarshalSplitsFields(t *testing.T) {
	raw := []byte(`{"id":"datum-1","type":"smbg","time":"2023-04-01T12:00:00Z","uploadId":"upload-1","origin":{"id":"origin-1"},"value":7.2,"units":"mmol/L"}`)

	var datum Datum
	if err := json.Unmarshal(raw, &datum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if datum.ID != "datum-1" || datum.Type != "smbg" || datum.UploadID != "upload-1" {
		t.Errorf("typed fields = %+v", datum)
	}
	if datum.Origin == nil || datum.Origin.ID != "origin-1" {
		t.Errorf("origin = %+v", datum.Origin)
	}
	if datum.Fields["value"] != 7.2 {
		t.Errorf("Fields[value] = %v", datum.Fields["value"])
	}
	if !datum.wellFormed() {
		t.Error("datum should be well-formed")
	}
}

func TestNewDatum_GeneratesOriginID(t *testing.T) {
	a := NewDatum("cbg", time.Now())
	b := NewDatum("cbg", time.Now())

	if a.Origin == nil || a.Origin.ID == "" {
		t.Fatal("origin id not generated")
	}
	if a.Origin.ID == b.Origin.ID {
		t.Error("origin ids should be unique")
	}
}

func TestSelectorForDatum(t *testing.T) {
	at := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("server id wins", func(t *testing.T) {
		datum := Datum{ID: "datum-1", Type: "cbg", Time: at, Origin: &Origin{ID: "origin-1"}}
		selector, ok := selectorForDatum(&datum)
		if !ok {
			t.Fatal("expected a selector")
		}
		if selector.ID != "datum-1" || selector.Origin != nil {
			t.Errorf("selector = %+v, want server id only", selector)
		}
	})

	t.Run("origin fallback", func(t *testing.T) {
		datum := Datum{Type: "cbg", Time: at, Origin: &Origin{ID: "origin-1"}}
		selector, ok := selectorForDatum(&datum)
		if !ok {
			t.Fatal("expected a selector")
		}
		if selector.Origin == nil || selector.Origin.ID != "origin-1" {
			t.Errorf("selector = %+v", selector)
		}
		if selector.Type != "cbg" || selector.Time == nil || !selector.Time.Equal(at) {
			t.Errorf("selector = %+v, want type and time", selector)
		}
	})

	t.Run("unaddressable datum", func(t *testing.T) {
		datum := Datum{Type: "cbg", Time: at}
		if _, ok := selectorForDatum(&datum); ok {
			t.Error("datum without id or origin must not produce a selector")
		}
	})
}
