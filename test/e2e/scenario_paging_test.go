package e2e

import (
	"fmt"
	"net/http"
	"testing"
)

// TestScenario_SearchAndPaging seeds a roster and exercises filtering,
// sorting, and page clamping through the list endpoint.
func TestScenario_SearchAndPaging(t *testing.T) {
	server := SetupE2ETest(t)

	trumpetID := server.CreateInstrument(t, "Trumpet")
	pianoID := server.CreateInstrument(t, "Piano")

	// 15 musicians: born one year apart, alternating primary instrument
	for i := 0; i < 15; i++ {
		instrumentID := trumpetID
		if i%2 == 1 {
			instrumentID = pianoID
		}
		fields := map[string]interface{}{
			"first_name":    fmt.Sprintf("First%02d", i),
			"last_name":     fmt.Sprintf("Last%02d", i),
			"phone":         fmt.Sprintf("555000%04d", i),
			"dob":           fmt.Sprintf("%d-01-15", 1960+i),
			"sin":           fmt.Sprintf("%09d", 100000000+i),
			"instrument_id": instrumentID,
		}
		server.CreateMusician(t, "staff", fields)
	}

	// Default page size is 10
	status, body := server.Do(t, http.MethodGet, "/v1/musicians", "staff", nil)
	if status != http.StatusOK {
		t.Fatalf("List status = %d, body %v", status, body)
	}
	if n := int(body["total_count"].(float64)); n != 15 {
		t.Errorf("total_count = %d, want 15", n)
	}
	if n := len(body["items"].([]interface{})); n != 10 {
		t.Errorf("first page size = %d, want 10", n)
	}
	if n := int(body["total_pages"].(float64)); n != 2 {
		t.Errorf("total_pages = %d, want 2", n)
	}

	// A page index past the end clamps to the last page
	status, body = server.Do(t, http.MethodGet, "/v1/musicians?page=99", "staff", nil)
	if status != http.StatusOK {
		t.Fatalf("clamped List status = %d", status)
	}
	if n := int(body["page"].(float64)); n != 2 {
		t.Errorf("clamped page = %d, want 2", n)
	}
	if n := len(body["items"].([]interface{})); n != 5 {
		t.Errorf("last page size = %d, want 5", n)
	}

	// Name search is a case-insensitive substring match
	status, body = server.Do(t, http.MethodGet, "/v1/musicians?search_name=LAST03", "staff", nil)
	if status != http.StatusOK {
		t.Fatalf("search status = %d", status)
	}
	if n := int(body["total_count"].(float64)); n != 1 {
		t.Errorf("search total_count = %d, want 1", n)
	}

	// Filter by primary instrument
	path := fmt.Sprintf("/v1/musicians?instrument_id=%d", pianoID)
	status, body = server.Do(t, http.MethodGet, path, "staff", nil)
	if status != http.StatusOK {
		t.Fatalf("instrument filter status = %d", status)
	}
	if n := int(body["total_count"].(float64)); n != 7 {
		t.Errorf("instrument filter total_count = %d, want 7", n)
	}

	// Sort by age ascending: the youngest musician comes first
	status, body = server.Do(t, http.MethodGet, "/v1/musicians?sort=age", "staff", nil)
	if status != http.StatusOK {
		t.Fatalf("age sort status = %d", status)
	}
	first := body["items"].([]interface{})[0].(map[string]interface{})
	if first["last_name"] != "Last14" {
		t.Errorf("youngest first = %v, want Last14", first["last_name"])
	}
}
