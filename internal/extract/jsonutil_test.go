package extract

import (
	"encoding/json"
	"testing"
)

func TestRecoverJSON_CodeFence(t *testing.T) {
	text := "Here is the extraction:\n```json\n{\"records\": [], \"confidence\": 0.8}\n```\nLet me know if you need anything else."
	got, err := RecoverJSON(text)
	if err != nil {
		t.Fatalf("RecoverJSON failed: %v", err)
	}
	if got != `{"records": [], "confidence": 0.8}` {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestRecoverJSON_ProseWrapped(t *testing.T) {
	text := `Sure! The result is {"a": {"b": [1, 2]}, "c": "x}y"} as requested.`
	got, err := RecoverJSON(text)
	if err != nil {
		t.Fatalf("RecoverJSON failed: %v", err)
	}
	if got != `{"a": {"b": [1, 2]}, "c": "x}y"}` {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestRecoverJSON_Array(t *testing.T) {
	got, err := RecoverJSON(`noise [1, 2, 3] trailing`)
	if err != nil {
		t.Fatalf("RecoverJSON failed: %v", err)
	}
	if got != `[1, 2, 3]` {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestRecoverJSON_EscapedQuotes(t *testing.T) {
	got, err := RecoverJSON(`{"k": "va\"l{ue"}`)
	if err != nil {
		t.Fatalf("RecoverJSON failed: %v", err)
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(got), &m); err != nil {
		t.Fatalf("recovered JSON does not parse: %v", err)
	}
}

func TestRecoverJSON_NoJSON(t *testing.T) {
	if _, err := RecoverJSON("I could not extract anything."); err == nil {
		t.Error("expected error for response without JSON")
	}
	if _, err := RecoverJSON(`{"unbalanced": true`); err == nil {
		t.Error("expected error for unbalanced JSON")
	}
}

func TestRepairJSON_TrailingComma(t *testing.T) {
	repaired := RepairJSON(`{"records": [{"a": 1},], "n": 2,}`)
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(repaired), &m); err != nil {
		t.Fatalf("repaired JSON does not parse: %v\n%s", err, repaired)
	}
}
