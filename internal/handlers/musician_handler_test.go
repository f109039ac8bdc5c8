package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/internal/services"
	"github.com/asakaida/gakudan/internal/services/authz"
	"github.com/asakaida/gakudan/pkg/paging"
)

type testServices struct {
	musicians    *mockMusicianService
	instruments  *mockInstrumentService
	performances *mockPerformanceService
	photos       *mockPhotoService
	documents    *mockDocumentService
}

func newTestServices() *testServices {
	return &testServices{
		musicians:    &mockMusicianService{},
		instruments:  &mockInstrumentService{},
		performances: &mockPerformanceService{},
		photos:       &mockPhotoService{},
		documents:    &mockDocumentService{},
	}
}

const testMaxUploadBytes = 1 << 20

func newTestRouter(s *testServices) *gin.Engine {
	return newTestRouterWithLimits(s, testMaxUploadBytes, testMaxUploadBytes)
}

func newTestRouterWithLimits(s *testServices, maxPhotoBytes, maxDocumentBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := &Router{
		Musicians:    NewMusicianHandler(s.musicians, s.photos, s.documents),
		Instruments:  NewInstrumentHandler(s.instruments),
		Performances: NewPerformanceHandler(s.performances),
		Files:        NewFileHandler(s.photos, s.documents, maxPhotoBytes, maxDocumentBytes),
	}
	return r.Build()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(headerRole, role)
		req.Header.Set(headerActor, "kim")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func testMusician() *entities.Musician {
	return &entities.Musician{
		ID:           1,
		FirstName:    "Miles",
		LastName:     "Davis",
		Phone:        "5550001111",
		DOB:          time.Date(1926, 5, 26, 0, 0, 0, 0, time.UTC),
		SIN:          "123456789",
		InstrumentID: 1,
		CreatedBy:    "kim",
		RowVersion:   "token-1",
		Instrument:   &entities.Instrument{ID: 1, Name: "Trumpet"},
	}
}

func musicianBody() map[string]interface{} {
	return map[string]interface{}{
		"first_name":          "Miles",
		"last_name":           "Davis",
		"phone":               "5550001111",
		"dob":                 "1926-05-26",
		"sin":                 "123456789",
		"instrument_id":       1,
		"play_instrument_ids": []string{"1", "2"},
	}
}

func TestMusicianHandler_List(t *testing.T) {
	s := newTestServices()
	s.musicians.listFn = func(ctx context.Context, query repositories.MusicianQuery) (*paging.Page[*entities.Musician], error) {
		assert.Equal(t, "dav", query.Filter.SearchName)
		assert.Equal(t, repositories.MusicianSortAge, query.SortField)
		assert.Equal(t, 2, query.PageIndex)
		page := paging.New([]*entities.Musician{testMusician()}, 11, 2, 10)
		return &page, nil
	}
	router := newTestRouter(s)

	w := doJSON(t, router, http.MethodGet, "/v1/musicians?search_name=dav&sort=age&page=2", string(authz.RoleStaff), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.EqualValues(t, 11, body["total_count"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Davis, Miles", items[0].(map[string]interface{})["formal_name"])
}

func TestMusicianHandler_Get_NotFound(t *testing.T) {
	router := newTestRouter(newTestServices())
	w := doJSON(t, router, http.MethodGet, "/v1/musicians/42", string(authz.RoleStaff), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMusicianHandler_Get_IncludesDocumentsAndPhoto(t *testing.T) {
	s := newTestServices()
	s.musicians.getFn = func(ctx context.Context, id int64) (*entities.Musician, error) {
		return testMusician(), nil
	}
	s.documents.listFn = func(ctx context.Context, musicianID int64) ([]*entities.MusicianDocument, error) {
		return []*entities.MusicianDocument{{ID: 7, FileName: "contract.pdf", MimeType: "application/pdf"}}, nil
	}
	s.photos.getFn = func(ctx context.Context, musicianID int64, thumb bool) ([]byte, string, error) {
		return []byte{1}, "image/jpeg", nil
	}
	router := newTestRouter(s)

	w := doJSON(t, router, http.MethodGet, "/v1/musicians/1", string(authz.RoleStaff), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["has_photo"])
	docs := body["documents"].([]interface{})
	require.Len(t, docs, 1)
	assert.Equal(t, "contract.pdf", docs[0].(map[string]interface{})["file_name"])
}

func TestMusicianHandler_Create(t *testing.T) {
	s := newTestServices()
	s.musicians.createFn = func(ctx context.Context, actor authz.Actor, fields services.MusicianFields, selected []string) (*entities.Musician, error) {
		assert.Equal(t, "kim", actor.Name)
		assert.Equal(t, []string{"1", "2"}, selected)
		assert.Equal(t, "Miles", fields.FirstName)
		return testMusician(), nil
	}
	router := newTestRouter(s)

	w := doJSON(t, router, http.MethodPost, "/v1/musicians", string(authz.RoleStaff), musicianBody())
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "token-1", body["row_version"])
}

func TestMusicianHandler_Create_MissingRole(t *testing.T) {
	router := newTestRouter(newTestServices())
	w := doJSON(t, router, http.MethodPost, "/v1/musicians", "", musicianBody())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMusicianHandler_Create_BindingErrors(t *testing.T) {
	router := newTestRouter(newTestServices())

	body := musicianBody()
	delete(body, "first_name")
	body["sin"] = "12345"

	w := doJSON(t, router, http.MethodPost, "/v1/musicians", string(authz.RoleStaff), body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	errs := decodeBody(t, w)["errors"].(map[string]interface{})
	assert.Contains(t, errs, "FirstName")
	assert.Contains(t, errs, "SIN")
}

func TestMusicianHandler_Create_BadDate(t *testing.T) {
	router := newTestRouter(newTestServices())

	body := musicianBody()
	body["dob"] = "26/05/1926"

	w := doJSON(t, router, http.MethodPost, "/v1/musicians", string(authz.RoleStaff), body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	errs := decodeBody(t, w)["errors"].(map[string]interface{})
	assert.Contains(t, errs, "dob")
}

func TestMusicianHandler_Update_Conflict(t *testing.T) {
	s := newTestServices()
	s.musicians.updateFn = func(ctx context.Context, actor authz.Actor, id int64, fields services.MusicianFields, expectedVersion string, selected []string) (*entities.Musician, error) {
		assert.Equal(t, "stale-token", expectedVersion)
		return nil, &entities.VersionConflictError{
			Diff: &entities.ConflictDiff{
				Fields:        []entities.FieldConflict{{Field: "phone", Attempted: "5550001111", Current: "5559990000"}},
				LatestVersion: "token-2",
			},
		}
	}
	s.musicians.optionsFn = func(ctx context.Context, id int64) (*services.SelectionLists, error) {
		return &services.SelectionLists{
			Selected:  []services.OptionItem{{ID: 1, Label: "Trumpet"}},
			Available: []services.OptionItem{{ID: 2, Label: "Piano"}},
		}, nil
	}
	router := newTestRouter(s)

	body := musicianBody()
	body["row_version"] = "stale-token"

	w := doJSON(t, router, http.MethodPut, "/v1/musicians/1", string(authz.RoleStaff), body)
	require.Equal(t, http.StatusConflict, w.Code)

	resp := decodeBody(t, w)
	conflict := resp["conflict"].(map[string]interface{})
	assert.Equal(t, "token-2", conflict["latest_version"])
	fields := conflict["fields"].([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "phone", fields[0].(map[string]interface{})["field"])

	// The attempted values and repopulated lists ride along so the form
	// can be re-rendered without losing input.
	attempted := resp["attempted"].(map[string]interface{})
	assert.Equal(t, "Miles", attempted["first_name"])
	options := resp["options"].(map[string]interface{})
	assert.Len(t, options["available"].([]interface{}), 1)
}

func TestMusicianHandler_Update_NotOwner(t *testing.T) {
	s := newTestServices()
	s.musicians.updateFn = func(ctx context.Context, actor authz.Actor, id int64, fields services.MusicianFields, expectedVersion string, selected []string) (*entities.Musician, error) {
		return nil, authz.ErrNotOwner
	}
	router := newTestRouter(s)

	body := musicianBody()
	body["row_version"] = "token-1"

	w := doJSON(t, router, http.MethodPut, "/v1/musicians/1", string(authz.RoleStaff), body)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestMusicianHandler_Delete_RolePolicy(t *testing.T) {
	s := newTestServices()
	s.musicians.deleteFn = func(ctx context.Context, id int64) error { return nil }
	router := newTestRouter(s)

	// Delete is admin-only.
	w := doJSON(t, router, http.MethodDelete, "/v1/musicians/1", string(authz.RoleStaff), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/v1/musicians/1", string(authz.RoleAdmin), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestMusicianHandler_Options(t *testing.T) {
	s := newTestServices()
	s.musicians.optionsFn = func(ctx context.Context, id int64) (*services.SelectionLists, error) {
		assert.EqualValues(t, 0, id)
		return &services.SelectionLists{
			Selected:  []services.OptionItem{},
			Available: []services.OptionItem{{ID: 1, Label: "Trumpet"}},
		}, nil
	}
	s.musicians.choicesFn = func(ctx context.Context) ([]services.OptionItem, error) {
		return []services.OptionItem{{ID: 1, Label: "Trumpet"}}, nil
	}
	router := newTestRouter(s)

	w := doJSON(t, router, http.MethodGet, "/v1/musicians/0/options", string(authz.RoleStaff), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Len(t, body["available"].([]interface{}), 1)
	assert.Len(t, body["instrument_choices"].([]interface{}), 1)
}
