package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/daywindow/internal/db"
	"github.com/terraincognita07/daywindow/internal/localstore"
	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/services"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

// 10:00 in Johannesburg: the default 04:00-20:00 window of 2026-03-02 is open.
var testNow = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (clock *testClock) Now() time.Time {
	return clock.now
}

func newLocalTestApp(t *testing.T, clock *testClock) (*fiber.App, *localstore.TaskStore) {
	t.Helper()

	store, err := localstore.NewTaskStore(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	return newTestAppWithRepository(t, clock, store), store
}

func newTestAppWithRepository(t *testing.T, clock *testClock, tasks services.TaskRepository) *fiber.App {
	t.Helper()

	handler, err := NewHandler(Options{
		LocalMode:   true,
		Preferences: localstore.NewPreferencesStore(),
		Tasks:       tasks,
		Clock:       clock.Now,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	return NewApp(handler)
}

func newSQLiteTestApp(t *testing.T, clock *testClock) *fiber.App {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "daywindow-api-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	repositories := db.NewRepositories(database)
	handler, err := NewHandler(Options{
		SecretKey:   testSecretKey,
		Users:       repositories.Users,
		Preferences: repositories.Preferences,
		Tasks:       repositories.Tasks,
		Clock:       clock.Now,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	return NewApp(handler)
}

func doJSON(t *testing.T, app *fiber.App, method string, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}

	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() {
		_ = response.Body.Close()
	})
	return response
}

func decodeBody(t *testing.T, response *http.Response, target any) {
	t.Helper()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		t.Fatalf("decode response body %q: %v", string(raw), err)
	}
}

func expectStatus(t *testing.T, response *http.Response, want int) {
	t.Helper()
	if response.StatusCode != want {
		raw, _ := io.ReadAll(response.Body)
		t.Fatalf("expected status %d, got %d: %s", want, response.StatusCode, string(raw))
	}
}

func readAPIError(t *testing.T, response *http.Response) string {
	t.Helper()

	payload := map[string]any{}
	decodeBody(t, response, &payload)
	message, _ := payload["error"].(string)
	return message
}

func responseCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

type taskEnvelope struct {
	Task models.Task `json:"task"`
}

func createTask(t *testing.T, app *fiber.App, title string, start time.Time, minutes int) models.Task {
	t.Helper()

	response := doJSON(t, app, http.MethodPost, "/api/tasks", fiber.Map{
		"title":            title,
		"category":         models.CategoryWork,
		"start_time":       start,
		"duration_minutes": minutes,
	})
	expectStatus(t, response, http.StatusCreated)
	envelope := taskEnvelope{}
	decodeBody(t, response, &envelope)
	return envelope.Task
}

// failingTaskRepository reads fine and rejects every write.
type failingTaskRepository struct {
	tasks   []models.Task
	listErr error
}

var errStoreOffline = errors.New("store offline")

func (repo *failingTaskRepository) ListByWindowRange(ctx context.Context, userID uint, fromDate string, toDate string) ([]models.Task, error) {
	if repo.listErr != nil {
		return nil, repo.listErr
	}
	return append([]models.Task(nil), repo.tasks...), nil
}

func (repo *failingTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return errStoreOffline
}

func (repo *failingTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return errStoreOffline
}

func (repo *failingTaskRepository) UpdateMany(ctx context.Context, tasks []models.Task) error {
	return errStoreOffline
}

func (repo *failingTaskRepository) Delete(ctx context.Context, userID uint, taskID string) error {
	return errStoreOffline
}

func (repo *failingTaskRepository) MarkArchived(ctx context.Context, userID uint, taskIDs []string, archivedAt time.Time) error {
	return errStoreOffline
}
