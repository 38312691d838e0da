package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"timesheet/internal/handlers"
	"timesheet/internal/handlers/dto"
	"timesheet/internal/middleware"
	"timesheet/internal/models/task"
	"timesheet/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTimerService - мок сервиса таймера
type MockTimerService struct {
	mock.Mock
}

func (m *MockTimerService) Start(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	args := m.Called(ctx, id, user, note)
	return taskOrNil(args)
}

func (m *MockTimerService) Pause(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	args := m.Called(ctx, id, user, note)
	return taskOrNil(args)
}

func (m *MockTimerService) Resume(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	args := m.Called(ctx, id, user, note)
	return taskOrNil(args)
}

func (m *MockTimerService) Stop(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	args := m.Called(ctx, id, user, note)
	return taskOrNil(args)
}

func (m *MockTimerService) Complete(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	args := m.Called(ctx, id, user, note)
	return taskOrNil(args)
}

func (m *MockTimerService) ListLogs(ctx context.Context, id uuid.UUID) ([]*task.TimeLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.TimeLogEntry), args.Error(1)
}

var _ handlers.TimerService = (*MockTimerService)(nil)

// MockTaskService - мок сервиса задач
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) CreateTask(ctx context.Context, user task.User, input service.CreateTaskInput) (*task.Task, error) {
	args := m.Called(ctx, user, input)
	return taskOrNil(args)
}

func (m *MockTaskService) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	return taskOrNil(args)
}

func (m *MockTaskService) ListTasks(ctx context.Context, options ...service.ListOption) ([]*task.Task, error) {
	args := m.Called(ctx, len(options))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) AssignTask(ctx context.Context, user task.User, id uuid.UUID, assignee int64) (*task.Task, error) {
	args := m.Called(ctx, user, id, assignee)
	return taskOrNil(args)
}

func (m *MockTaskService) AcceptTask(ctx context.Context, user task.User, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, user, id)
	return taskOrNil(args)
}

func (m *MockTaskService) RejectTask(ctx context.Context, user task.User, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, user, id)
	return taskOrNil(args)
}

var _ handlers.TaskService = (*MockTaskService)(nil)

func taskOrNil(args mock.Arguments) (*task.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

var (
	employee = task.User{ID: 42, Role: task.RoleEmployee}
	manager  = task.User{ID: 1, Role: task.RoleManager}
)

func newRouter(tasks handlers.TaskService, timers handlers.TimerService) http.Handler {
	taskHandler := handlers.NewTaskHandler(tasks)
	timerHandler := handlers.NewTimerHandler(timers)

	r := chi.NewRouter()
	r.Get("/health", taskHandler.HealthCheck)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)
		handlers.Mount(r, &taskHandler, &timerHandler)
	})
	return r
}

type request struct {
	method      string
	path        string
	body        string
	contentType string
	user        *task.User
}

func serve(h http.Handler, req request) *httptest.ResponseRecorder {
	var body io.Reader = http.NoBody
	if req.body != "" {
		body = bytes.NewBufferString(req.body)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.contentType != "" {
		r.Header.Set("Content-Type", req.contentType)
	}
	if req.user != nil {
		r.Header.Set(middleware.HeaderUserID, strconv.FormatInt(req.user.ID, 10))
		r.Header.Set(middleware.HeaderUserRole, string(req.user.Role))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func runningTask(id uuid.UUID, startedAgo time.Duration) *task.Task {
	assignee := int64(42)
	started := time.Now().UTC().Add(-startedAgo)
	return &task.Task{
		UUID:                 id,
		ProjectID:            uuid.New(),
		Title:                "Test Task",
		AssignedTo:           &assignee,
		EstimatedTime:        2,
		Status:               task.StatusInProgress,
		AcceptanceStatus:     task.AcceptanceAccepted,
		TotalTrackedSeconds:  60,
		ActiveTimerStartedAt: &started,
		StartedAt:            &started,
		Version:              2,
	}
}

// TestTaskHandler_HealthCheck тестирует HealthCheck
func TestTaskHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - healthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "error - unhealthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("service unavailable"))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := serve(newRouter(mockService, new(MockTimerService)), request{method: http.MethodGet, path: "/health"})

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), "timesheet")
			mockService.AssertExpectations(t)
		})
	}
}

// TestTimerHandler_Transitions тестирует успешные переходы всех операций таймера
func TestTimerHandler_Transitions(t *testing.T) {
	taskID := uuid.New()

	tests := []struct {
		method   string
		path     string
		status   task.Status
		message  string
		withNote bool
	}{
		{method: "Start", path: "start", status: task.StatusInProgress, message: "Таймер задачи запущен", withNote: true},
		{method: "Pause", path: "pause", status: task.StatusPaused, message: "Таймер задачи приостановлен"},
		{method: "Resume", path: "resume", status: task.StatusInProgress, message: "Таймер задачи возобновлён", withNote: true},
		{method: "Stop", path: "stop", status: task.StatusPaused, message: "Таймер задачи остановлен"},
		{method: "Complete", path: "complete", status: task.StatusCompleted, message: "Задача завершена", withNote: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			note, body, contentType := "", "", ""
			if tt.withNote {
				note = "working on " + tt.path
				body = fmt.Sprintf(`{"note": %q}`, note)
				contentType = "application/json"
			}

			result := runningTask(taskID, time.Minute)
			result.Status = tt.status
			if tt.status != task.StatusInProgress {
				result.ActiveTimerStartedAt = nil
			}

			timers := new(MockTimerService)
			timers.On(tt.method, mock.Anything, taskID, employee, note).Return(result, nil)

			w := serve(newRouter(new(MockTaskService), timers), request{
				method:      http.MethodPost,
				path:        "/tasks/" + taskID.String() + "/" + tt.path,
				body:        body,
				contentType: contentType,
				user:        &employee,
			})

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var response struct {
				Message string           `json:"message"`
				Task    dto.TaskResponse `json:"task"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.message, response.Message)
			assert.Equal(t, taskID, response.Task.UUID)
			assert.Equal(t, string(tt.status), response.Task.Status)
			assert.Equal(t, int64(60), response.Task.TotalTrackedSeconds)
			if tt.status == task.StatusInProgress {
				assert.GreaterOrEqual(t, response.Task.TrackedSeconds, int64(120))
			} else {
				assert.Equal(t, int64(60), response.Task.TrackedSeconds)
			}
			timers.AssertExpectations(t)
		})
	}
}

// TestTimerHandler_Errors тестирует отображение ошибок сервиса в HTTP
func TestTimerHandler_Errors(t *testing.T) {
	taskID := uuid.New()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedCode    string
		expectedMessage string
	}{
		{
			name:            "not found",
			err:             service.NewNotFound(taskID),
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    service.CodeNotFound,
			expectedMessage: service.NewNotFound(taskID).Message,
		},
		{
			name:            "forbidden",
			err:             service.NewForbidden(taskID, 42, errors.New("not assignee")),
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    service.CodeForbidden,
			expectedMessage: service.NewForbidden(taskID, 42, nil).Message,
		},
		{
			name:            "invalid transition",
			err:             service.NewInvalidTransition(taskID, task.StatusCompleted, task.ActionPause),
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    service.CodeInvalidTransition,
			expectedMessage: `нельзя выполнить "pause" для задачи в статусе "completed"`,
		},
		{
			name:           "version conflict",
			err:            service.NewVersionConflict(taskID, errors.New("conflict")),
			expectedStatus: http.StatusConflict,
			expectedCode:   service.CodeVersionConflict,
		},
		{
			name:           "storage failure",
			err:            service.NewStorageFailure("переход таймера", errors.New("db down")),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   service.CodeStorageFailure,
		},
		{
			name:           "unexpected error",
			err:            errors.New("panic-ish"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timers := new(MockTimerService)
			timers.On("Pause", mock.Anything, taskID, employee, "").Return(nil, tt.err)

			w := serve(newRouter(new(MockTaskService), timers), request{
				method: http.MethodPost,
				path:   "/tasks/" + taskID.String() + "/pause",
				user:   &employee,
			})

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decodeBody(t, w)
			assert.NotEmpty(t, body["message"])
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error"])
			}
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, body["message"])
			}
			assert.NotContains(t, w.Body.String(), "db down")
			timers.AssertExpectations(t)
		})
	}
}

// TestTimerHandler_RequestValidation тестирует разбор запроса до вызова сервиса
func TestTimerHandler_RequestValidation(t *testing.T) {
	taskID := uuid.New()

	tests := []struct {
		name           string
		req            request
		expectedStatus int
	}{
		{
			name:           "invalid uuid",
			req:            request{method: http.MethodPost, path: "/tasks/not-a-uuid/start", user: &employee},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "nil uuid",
			req:            request{method: http.MethodPost, path: "/tasks/" + uuid.Nil.String() + "/start", user: &employee},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing identity",
			req:            request{method: http.MethodPost, path: "/tasks/" + taskID.String() + "/start"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "invalid json",
			req: request{method: http.MethodPost, path: "/tasks/" + taskID.String() + "/start",
				body: `{note:`, contentType: "application/json", user: &employee},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "wrong content type",
			req: request{method: http.MethodPost, path: "/tasks/" + taskID.String() + "/start",
				body: `note=x`, contentType: "application/x-www-form-urlencoded", user: &employee},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name: "note too long",
			req: request{method: http.MethodPost, path: "/tasks/" + taskID.String() + "/start",
				body: fmt.Sprintf(`{"note": %q}`, strings.Repeat("x", 2001)), contentType: "application/json", user: &employee},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "method not allowed",
			req:            request{method: http.MethodGet, path: "/tasks/" + taskID.String() + "/start", user: &employee},
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timers := new(MockTimerService)
			w := serve(newRouter(new(MockTaskService), timers), tt.req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			timers.AssertNotCalled(t, "Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// TestTimerHandler_GetTimeLogs тестирует получение журнала
func TestTimerHandler_GetTimeLogs(t *testing.T) {
	taskID := uuid.New()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("success - ordered entries", func(t *testing.T) {
		entries := []*task.TimeLogEntry{
			task.NewTimeLogEntry(taskID, 42, task.ActionStart, base, "go", task.StatusInProgress),
			task.NewTimeLogEntry(taskID, 42, task.ActionPause, base.Add(2*time.Minute), "", task.StatusPaused),
		}
		timers := new(MockTimerService)
		timers.On("ListLogs", mock.Anything, taskID).Return(entries, nil)

		w := serve(newRouter(new(MockTaskService), timers), request{
			method: http.MethodGet,
			path:   "/tasks/" + taskID.String() + "/logs",
			user:   &employee,
		})

		require.Equal(t, http.StatusOK, w.Code)
		var response []dto.TimeLogResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 2)
		assert.Equal(t, "start", response[0].Action)
		assert.Equal(t, "go", response[0].Note)
		assert.Equal(t, "pause", response[1].Action)
		assert.Equal(t, "paused", response[1].ResultingStatus)
		assert.True(t, base.Add(2*time.Minute).Equal(response[1].OccurredAt))
		timers.AssertExpectations(t)
	})

	t.Run("success - entry json shape", func(t *testing.T) {
		entry := task.NewTimeLogEntry(taskID, 42, task.ActionStart, base, "", task.StatusInProgress)
		timers := new(MockTimerService)
		timers.On("ListLogs", mock.Anything, taskID).Return([]*task.TimeLogEntry{entry}, nil)

		w := serve(newRouter(new(MockTaskService), timers), request{
			method: http.MethodGet,
			path:   "/tasks/" + taskID.String() + "/logs",
			user:   &employee,
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`[{
			"id": %q,
			"taskId": %q,
			"userId": 42,
			"action": "start",
			"occurredAt": "2026-03-02T09:00:00Z",
			"resultingStatus": "in_progress"
		}]`, entry.UUID, taskID), w.Body.String())
	})

	t.Run("success - empty log is array", func(t *testing.T) {
		timers := new(MockTimerService)
		timers.On("ListLogs", mock.Anything, taskID).Return([]*task.TimeLogEntry{}, nil)

		w := serve(newRouter(new(MockTaskService), timers), request{
			method: http.MethodGet,
			path:   "/tasks/" + taskID.String() + "/logs",
			user:   &employee,
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("error - storage failure", func(t *testing.T) {
		timers := new(MockTimerService)
		timers.On("ListLogs", mock.Anything, taskID).
			Return(nil, service.NewStorageFailure("получение журнала", errors.New("db down")))

		w := serve(newRouter(new(MockTaskService), timers), request{
			method: http.MethodGet,
			path:   "/tasks/" + taskID.String() + "/logs",
			user:   &employee,
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		timers.AssertExpectations(t)
	})
}

// TestTaskHandler_PostTask тестирует создание задачи
func TestTaskHandler_PostTask(t *testing.T) {
	projectID := uuid.New()
	assignee := int64(42)

	tests := []struct {
		name           string
		requestBody    string
		contentType    string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - create task",
			requestBody: fmt.Sprintf(`{
				"projectId": "%s",
				"title": "Test Task",
				"description": "Test Description",
				"assignedTo": 42,
				"estimatedTime": 3.5
			}`, projectID),
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				input := service.CreateTaskInput{
					ProjectID:     projectID,
					Title:         "Test Task",
					Description:   "Test Description",
					AssignedTo:    &assignee,
					EstimatedTime: 3.5,
				}
				m.On("CreateTask", mock.Anything, manager, input).
					Return(task.New(projectID, "Test Task", 3.5, task.WithAssignee(&assignee)), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "error - invalid content type",
			requestBody:    `{}`,
			contentType:    "text/plain",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "error - missing content type",
			requestBody:    `{}`,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "error - invalid JSON",
			requestBody:    `{invalid json}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "error - validation from service",
			requestBody: fmt.Sprintf(`{"projectId": "%s", "title": "", "estimatedTime": 1}`, projectID),
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, manager, mock.Anything).
					Return(nil, service.NewValidationError("title", "название не может быть пустым"))
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := serve(newRouter(mockService, new(MockTimerService)), request{
				method:      http.MethodPost,
				path:        "/tasks",
				body:        tt.requestBody,
				contentType: tt.contentType,
				user:        &manager,
			})

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedStatus == http.StatusCreated {
				var response struct {
					Message string           `json:"message"`
					Task    dto.TaskResponse `json:"task"`
				}
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, "Test Task", response.Task.Title)
				assert.Equal(t, "pending", response.Task.Status)
				assert.Equal(t, "pending", response.Task.AcceptanceStatus)
				require.NotNil(t, response.Task.AssignedTo)
				assert.Equal(t, int64(42), *response.Task.AssignedTo)
			}

			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_GetTaskByID тестирует получение задачи по ID
func TestTaskHandler_GetTaskByID(t *testing.T) {
	taskID := uuid.New()

	tests := []struct {
		name           string
		taskID         string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name:   "success - get task",
			taskID: taskID.String(),
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, taskID).Return(runningTask(taskID, 30*time.Second), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error - invalid UUID",
			taskID:         "invalid-uuid",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "error - task not found",
			taskID: taskID.String(),
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, taskID).Return(nil, service.NewNotFound(taskID))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "error - service error",
			taskID: taskID.String(),
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, taskID).Return(nil, errors.New("internal error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := serve(newRouter(mockService, new(MockTimerService)), request{
				method: http.MethodGet,
				path:   "/tasks/" + tt.taskID,
				user:   &employee,
			})

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var response dto.TaskResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, taskID, response.UUID)
				assert.Equal(t, "in_progress", response.Status)
				assert.NotNil(t, response.ActiveTimerStartedAt)
				assert.GreaterOrEqual(t, response.TrackedSeconds, int64(90))
			}

			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_ListTasks тестирует разбор параметров списка
func TestTaskHandler_ListTasks(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		expectedOptions int
		expectedStatus  int
	}{
		{name: "defaults", query: "", expectedOptions: 1, expectedStatus: http.StatusOK},
		{name: "all filters", query: "?assignedTo=42&status=paused&page=2&limit=5", expectedOptions: 3, expectedStatus: http.StatusOK},
		{name: "invalid assignee", query: "?assignedTo=bob", expectedStatus: http.StatusBadRequest},
		{name: "invalid page", query: "?page=invalid", expectedStatus: http.StatusBadRequest},
		{name: "negative page", query: "?page=-1", expectedStatus: http.StatusBadRequest},
		{name: "zero limit", query: "?limit=0", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			if tt.expectedStatus == http.StatusOK {
				mockService.On("ListTasks", mock.Anything, tt.expectedOptions).
					Return([]*task.Task{runningTask(uuid.New(), time.Second)}, nil)
			}

			w := serve(newRouter(mockService, new(MockTimerService)), request{
				method: http.MethodGet,
				path:   "/tasks" + tt.query,
				user:   &manager,
			})

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var response []dto.TaskResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Len(t, response, 1)
			}
			mockService.AssertExpectations(t)
		})
	}

	t.Run("error - unknown status from service", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("ListTasks", mock.Anything, 2).
			Return(nil, service.NewValidationError("status", "неизвестный статус"))

		w := serve(newRouter(mockService, new(MockTimerService)), request{
			method: http.MethodGet,
			path:   "/tasks?status=sleeping",
			user:   &manager,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, service.CodeValidation, decodeBody(t, w)["error"])
	})
}

// TestTaskHandler_AssignAndDecide тестирует назначение и приёмку задачи
func TestTaskHandler_AssignAndDecide(t *testing.T) {
	taskID := uuid.New()

	t.Run("assign", func(t *testing.T) {
		assigned := runningTask(taskID, 0)
		assigned.Status = task.StatusPending
		assigned.ActiveTimerStartedAt = nil

		mockService := new(MockTaskService)
		mockService.On("AssignTask", mock.Anything, manager, taskID, int64(77)).Return(assigned, nil)

		w := serve(newRouter(mockService, new(MockTimerService)), request{
			method:      http.MethodPost,
			path:        "/tasks/" + taskID.String() + "/assign",
			body:        `{"assignedTo": 77}`,
			contentType: "application/json",
			user:        &manager,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Исполнитель назначен", decodeBody(t, w)["message"])
		mockService.AssertExpectations(t)
	})

	t.Run("assign - forbidden for employee", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("AssignTask", mock.Anything, employee, taskID, int64(77)).
			Return(nil, service.NewBusinessError(service.CodeForbidden, "назначать задачи может только менеджер или администратор"))

		w := serve(newRouter(mockService, new(MockTimerService)), request{
			method:      http.MethodPost,
			path:        "/tasks/" + taskID.String() + "/assign",
			body:        `{"assignedTo": 77}`,
			contentType: "application/json",
			user:        &employee,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, service.CodeForbidden, decodeBody(t, w)["error"])
	})

	for _, decision := range []struct {
		path    string
		method  string
		message string
	}{
		{path: "accept", method: "AcceptTask", message: "Задача принята"},
		{path: "reject", method: "RejectTask", message: "Задача отклонена"},
	} {
		t.Run(decision.path, func(t *testing.T) {
			mockService := new(MockTaskService)
			mockService.On(decision.method, mock.Anything, employee, taskID).Return(runningTask(taskID, 0), nil)

			w := serve(newRouter(mockService, new(MockTimerService)), request{
				method: http.MethodPost,
				path:   "/tasks/" + taskID.String() + "/" + decision.path,
				user:   &employee,
			})

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, decision.message, decodeBody(t, w)["message"])
			mockService.AssertExpectations(t)
		})
	}
}

// TestTimerHandler_ConcurrentRequests тестирует конкурентные запросы
func TestTimerHandler_ConcurrentRequests(t *testing.T) {
	timers := new(MockTimerService)
	taskID := uuid.New()

	timers.On("ListLogs", mock.Anything, taskID).Return([]*task.TimeLogEntry{}, nil).Times(10)

	router := newRouter(new(MockTaskService), timers)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := serve(router, request{
				method: http.MethodGet,
				path:   "/tasks/" + taskID.String() + "/logs",
				user:   &employee,
			})
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	timers.AssertExpectations(t)
}
