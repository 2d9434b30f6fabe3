package audit

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func exportFixture(t *testing.T) []*Event {
	t.Helper()
	tenantID := uuid.New()
	a := testEvent(EventTypeMatrixSave, tenantID, time.Now().UTC())
	a.ID = uuid.New()
	b := testEvent(EventTypeOverrideSave, tenantID, time.Now().UTC())
	b.ID = uuid.New()
	return []*Event{a, b}
}

func TestEncodeJSON(t *testing.T) {
	events := exportFixture(t)

	data, err := Encode(events, ExportFormatJSON)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	var decoded []*Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("expected 2 events, got %d", len(decoded))
	}
	if decoded[0].EventType != EventTypeMatrixSave {
		t.Errorf("expected matrix save first, got %s", decoded[0].EventType)
	}
}

func TestEncodeNDJSON(t *testing.T) {
	events := exportFixture(t)

	data, err := Encode(events, ExportFormatNDJSON)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d", len(lines))
	}
	for i, line := range lines {
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

func TestEncodeCSV(t *testing.T) {
	events := exportFixture(t)

	data, err := Encode(events, ExportFormatCSV)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	// Header plus two rows
	if len(records) != 3 {
		t.Fatalf("expected 3 CSV records, got %d", len(records))
	}
	if records[0][0] != "ID" {
		t.Errorf("expected ID header, got %q", records[0][0])
	}
	if records[1][2] != string(EventTypeMatrixSave) {
		t.Errorf("expected matrix save in first row, got %q", records[1][2])
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	if _, err := Encode(exportFixture(t), ExportFormat("xml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}
