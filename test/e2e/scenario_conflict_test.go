package e2e

import (
	"net/http"
	"testing"
)

// TestScenario_ConcurrentEdit reproduces the two-writer race: both load
// the same version token, the first save wins, the second gets a 409 with
// a field diff and can retry with the latest token.
func TestScenario_ConcurrentEdit(t *testing.T) {
	server := SetupE2ETest(t)

	trumpetID := server.CreateInstrument(t, "Trumpet")
	created := server.CreateMusician(t, "supervisor", musicianFields(trumpetID, "123456789"))
	id := intToStr(int64(created["id"].(float64)))
	token := created["row_version"].(string)

	// Writer A commits first
	fieldsA := musicianFields(trumpetID, "123456789")
	fieldsA["phone"] = "5551112222"
	fieldsA["row_version"] = token
	status, body := server.Do(t, http.MethodPut, "/v1/musicians/"+id, "supervisor", fieldsA)
	if status != http.StatusOK {
		t.Fatalf("writer A status = %d, body %v", status, body)
	}

	// Writer B still holds the original token
	fieldsB := musicianFields(trumpetID, "123456789")
	fieldsB["phone"] = "5553334444"
	fieldsB["row_version"] = token
	status, body = server.Do(t, http.MethodPut, "/v1/musicians/"+id, "supervisor", fieldsB)
	if status != http.StatusConflict {
		t.Fatalf("writer B status = %d, want 409, body %v", status, body)
	}

	conflict := body["conflict"].(map[string]interface{})
	latest := conflict["latest_version"].(string)
	if latest == "" || latest == token {
		t.Errorf("latest_version = %q, want a rotated token", latest)
	}

	// The diff reports the contested field with both values
	fields := conflict["fields"].([]interface{})
	foundPhone := false
	for _, f := range fields {
		fc := f.(map[string]interface{})
		if fc["field"] == "phone" {
			foundPhone = true
			if fc["attempted"] != "5553334444" || fc["current"] != "5551112222" {
				t.Errorf("phone diff = %v", fc)
			}
		}
	}
	if !foundPhone {
		t.Errorf("diff fields = %v, want a phone entry", fields)
	}

	// The attempted values and repopulated options ride along
	if _, ok := body["attempted"]; !ok {
		t.Error("conflict response is missing the attempted values")
	}
	if _, ok := body["options"]; !ok {
		t.Error("conflict response is missing the selection lists")
	}

	// Retrying with the latest token succeeds
	fieldsB["row_version"] = latest
	status, body = server.Do(t, http.MethodPut, "/v1/musicians/"+id, "supervisor", fieldsB)
	if status != http.StatusOK {
		t.Fatalf("retry status = %d, body %v", status, body)
	}
	if body["phone"] != "5553334444" {
		t.Errorf("phone after retry = %v", body["phone"])
	}
}

// TestScenario_EditDeletedRecord covers the other race: the record is
// deleted between load and save.
func TestScenario_EditDeletedRecord(t *testing.T) {
	server := SetupE2ETest(t)

	trumpetID := server.CreateInstrument(t, "Trumpet")
	created := server.CreateMusician(t, "supervisor", musicianFields(trumpetID, "123456789"))
	id := intToStr(int64(created["id"].(float64)))
	token := created["row_version"].(string)

	status, _ := server.Do(t, http.MethodDelete, "/v1/musicians/"+id, "admin", nil)
	if status != http.StatusNoContent {
		t.Fatalf("Delete status = %d", status)
	}

	fields := musicianFields(trumpetID, "123456789")
	fields["row_version"] = token
	status, body := server.Do(t, http.MethodPut, "/v1/musicians/"+id, "supervisor", fields)
	if status != http.StatusNotFound {
		t.Fatalf("edit of deleted record status = %d, body %v", status, body)
	}
}

// TestScenario_StaffOwnership verifies the staff-owner rule: staff may
// only edit records they created.
func TestScenario_StaffOwnership(t *testing.T) {
	server := SetupE2ETest(t)

	trumpetID := server.CreateInstrument(t, "Trumpet")
	created := server.CreateMusician(t, "staff", musicianFields(trumpetID, "123456789"))
	id := intToStr(int64(created["id"].(float64)))
	token := created["row_version"].(string)

	fields := musicianFields(trumpetID, "123456789")
	fields["row_version"] = token

	// A different staff actor is refused
	status, body := server.doAs(t, http.MethodPut, "/v1/musicians/"+id, "staff", "someone-else", fields)
	if status != http.StatusForbidden {
		t.Fatalf("non-owner staff edit status = %d, body %v", status, body)
	}

	// A supervisor is unrestricted
	status, body = server.doAs(t, http.MethodPut, "/v1/musicians/"+id, "supervisor", "someone-else", fields)
	if status != http.StatusOK {
		t.Fatalf("supervisor edit status = %d, body %v", status, body)
	}
}
