package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/asakaida/gakudan/internal/handlers"
	"github.com/asakaida/gakudan/internal/infrastructure/config"
	"github.com/asakaida/gakudan/internal/infrastructure/database"
	"github.com/asakaida/gakudan/internal/repositories/postgres"
	"github.com/asakaida/gakudan/internal/services"
)

// E2ETestServer represents an E2E test environment
type E2ETestServer struct {
	Server *httptest.Server
	Client *http.Client
	DB     *sql.DB
}

// SetupE2ETest sets up an E2E test environment. Skips the test when the
// test database is not reachable.
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()

	// Initialize config for test environment
	config.InitConfig("test")
	cfg, err := config.Load()
	if err != nil {
		t.Skipf("test config unavailable: %v", err)
	}

	// Connect to test database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	// Run migrations (use absolute path)
	projectRoot, err := findProjectRoot()
	if err != nil {
		t.Fatalf("failed to find project root: %v", err)
	}
	migrationsPath := projectRoot + "/internal/infrastructure/database/migrations/postgres"
	if err := pg.RunMigrations(migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Clean up existing data
	cleanupDatabase(t, pg.DB)

	// Initialize repositories
	musicianRepo := postgres.NewPostgresMusicianRepository(pg.DB)
	instrumentRepo := postgres.NewPostgresInstrumentRepository(pg.DB)
	performanceRepo := postgres.NewPostgresPerformanceRepository(pg.DB)
	photoRepo := postgres.NewPostgresPhotoRepository(pg.DB)
	documentRepo := postgres.NewPostgresDocumentRepository(pg.DB)

	// Initialize services (no cache in E2E tests)
	musicianService := services.NewMusicianService(musicianRepo, instrumentRepo, nil, 0)
	instrumentService := services.NewInstrumentService(instrumentRepo, musicianRepo, nil, 0)
	performanceService := services.NewPerformanceService(performanceRepo, musicianRepo)
	photoService := services.NewPhotoService(photoRepo, musicianRepo)
	documentService := services.NewDocumentService(documentRepo, musicianRepo)

	router := &handlers.Router{
		Musicians:    handlers.NewMusicianHandler(musicianService, photoService, documentService),
		Instruments:  handlers.NewInstrumentHandler(instrumentService),
		Performances: handlers.NewPerformanceHandler(performanceService),
		Files:        handlers.NewFileHandler(photoService, documentService, cfg.Upload.MaxPhotoBytes, cfg.Upload.MaxDocumentBytes),
		Health:       pg,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	server := httptest.NewServer(router.Build())
	t.Cleanup(func() {
		server.Close()
		cleanupDatabase(t, pg.DB)
		pg.Close()
	})

	return &E2ETestServer{
		Server: server,
		Client: server.Client(),
		DB:     pg.DB,
	}
}

// Do sends a JSON request with the given role and decodes the response.
func (e *E2ETestServer) Do(t *testing.T, method, path, role string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	return e.doAs(t, method, path, role, "e2e", body)
}

func (e *E2ETestServer) doAs(t *testing.T, method, path, role, actor string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", role)
	req.Header.Set("X-Actor", actor)

	resp, err := e.Client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	var decoded map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			// Binary responses (photo, workbook) are not JSON
			decoded = map[string]interface{}{"_raw": string(data)}
		}
	}
	return resp.StatusCode, decoded
}

// CreateInstrument inserts an instrument through the API and returns its ID.
func (e *E2ETestServer) CreateInstrument(t *testing.T, name string) int64 {
	t.Helper()

	status, body := e.Do(t, http.MethodPost, "/v1/instruments", "admin", map[string]interface{}{"name": name})
	if status != http.StatusCreated {
		t.Fatalf("failed to create instrument %q: status %d, body %v", name, status, body)
	}
	return int64(body["id"].(float64))
}

// CreateMusician inserts a musician through the API and returns the response.
func (e *E2ETestServer) CreateMusician(t *testing.T, role string, fields map[string]interface{}) map[string]interface{} {
	t.Helper()

	status, body := e.Do(t, http.MethodPost, "/v1/musicians", role, fields)
	if status != http.StatusCreated {
		t.Fatalf("failed to create musician: status %d, body %v", status, body)
	}
	return body
}

// cleanupDatabase removes all data from test database
func cleanupDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Delete in correct order due to foreign key constraints
	tables := []string{"performances", "musician_documents", "musician_photos", "plays", "musicians", "instruments"}
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		if _, err := db.ExecContext(ctx, query); err != nil {
			t.Logf("warning: failed to clean up table %s: %v", table, err)
		}
	}
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project root not found")
		}
		dir = parent
	}
}

func intToStr(id int64) string {
	return strconv.FormatInt(id, 10)
}

func musicianFields(instrumentID int64, sin string) map[string]interface{} {
	return map[string]interface{}{
		"first_name":    "Miles",
		"last_name":     "Davis",
		"phone":         "5550001111",
		"dob":           "1926-05-26",
		"sin":           sin,
		"instrument_id": instrumentID,
	}
}
