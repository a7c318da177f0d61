package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/service"
)

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, in service.LoginInput) (*service.LoginOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginOutput), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)

	adminID := uint(3)
	user := &model.User{
		ID:       7,
		Username: "alice",
		Email:    "alice@example.com",
		Profile:  &model.Profile{Role: model.RoleUser, AdminID: &adminID},
	}

	tests := []struct {
		name           string
		body           string
		setup          func(*MockAuthService)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "successful login",
			body: `{"username": "alice", "password": "correct-horse"}`,
			setup: func(svc *MockAuthService) {
				svc.On("Login", mock.Anything, service.LoginInput{Username: "alice", Password: "correct-horse"}).
					Return(&service.LoginOutput{AccessToken: "acc", RefreshToken: "ref", User: user}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unknown user",
			body: `{"username": "nobody", "password": "x-y-z-pass"}`,
			setup: func(svc *MockAuthService) {
				svc.On("Login", mock.Anything, mock.Anything).Return(nil, service.ErrUserNotExist)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "User does not exist",
		},
		{
			name: "wrong password",
			body: `{"username": "alice", "password": "wrong"}`,
			setup: func(svc *MockAuthService) {
				svc.On("Login", mock.Anything, mock.Anything).Return(nil, service.ErrInvalidPassword)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid password",
		},
		{
			name: "inactive account",
			body: `{"username": "alice", "password": "correct-horse"}`,
			setup: func(svc *MockAuthService) {
				svc.On("Login", mock.Anything, mock.Anything).Return(nil, service.ErrInactiveAccount)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "User account is inactive",
		},
		{
			name:           "missing credentials",
			body:           `{"username": "alice"}`,
			setup:          func(svc *MockAuthService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockAuthService{}
			tt.setup(mockService)

			handler := NewAuthHandler(mockService)
			router := gin.New()
			router.POST("/auth/login", handler.Login)

			w := postJSON(router, "/auth/login", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, true, body["success"])
				assert.Equal(t, "acc", body["token"])
				assert.Equal(t, "ref", body["refresh_token"])
				u := body["user"].(map[string]interface{})
				assert.Equal(t, "alice", u["username"])
				assert.Equal(t, "user", u["role"])
				assert.Equal(t, float64(adminID), u["admin_id"])
			}
			if tt.expectedError != "" {
				assert.Contains(t, w.Body.String(), tt.expectedError)
			}
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		body  string
		token string
	}{
		{"with refresh token", `{"refresh_token": "ref"}`, "ref"},
		{"without body", ``, ""},
		{"malformed body", `{{{`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockAuthService{}
			mockService.On("Logout", mock.Anything, tt.token).Return(nil)

			handler := NewAuthHandler(mockService)
			router := gin.New()
			router.POST("/auth/logout", handler.Logout)

			w := postJSON(router, "/auth/logout", tt.body)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "Logged out successfully")
			mockService.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("valid refresh token", func(t *testing.T) {
		mockService := &MockAuthService{}
		mockService.On("Refresh", mock.Anything, "ref").Return("new-access", nil)

		handler := NewAuthHandler(mockService)
		router := gin.New()
		router.POST("/auth/token/refresh", handler.Refresh)

		w := postJSON(router, "/auth/token/refresh", `{"refresh": "ref"}`)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "new-access", body["access"])
	})

	t.Run("invalid refresh token", func(t *testing.T) {
		mockService := &MockAuthService{}
		mockService.On("Refresh", mock.Anything, "bad").Return("", service.ErrInvalidRefreshToken)

		handler := NewAuthHandler(mockService)
		router := gin.New()
		router.POST("/auth/token/refresh", handler.Refresh)

		w := postJSON(router, "/auth/token/refresh", `{"refresh": "bad"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Token is invalid or expired")
	})

	t.Run("missing token", func(t *testing.T) {
		handler := NewAuthHandler(&MockAuthService{})
		router := gin.New()
		router.POST("/auth/token/refresh", handler.Refresh)

		w := postJSON(router, "/auth/token/refresh", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("field errors use the wrapped envelope", func(t *testing.T) {
		mockService := &MockAuthService{}
		fe := service.FieldErrors{}
		fe.Add("admin_id", "Users must have an admin_id assigned.")
		mockService.On("Register", mock.Anything, mock.Anything).Return(nil, fe)

		handler := NewAuthHandler(mockService)
		router := gin.New()
		router.POST("/auth/register", handler.Register)

		w := postJSON(router, "/auth/register", `{"username": "u", "email": "u@example.com", "password": "correct-horse", "role": "user"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		errs := body["errors"].(map[string]interface{})
		assert.Contains(t, errs, "admin_id")
	})

	t.Run("created", func(t *testing.T) {
		mockService := &MockAuthService{}
		mockService.On("Register", mock.Anything, mock.Anything).
			Return(&model.User{ID: 9, Username: "u", Email: "u@example.com", Profile: &model.Profile{Role: model.RoleAdmin}}, nil)

		handler := NewAuthHandler(mockService)
		router := gin.New()
		router.POST("/auth/register", handler.Register)

		w := postJSON(router, "/auth/register", `{"username": "u", "email": "u@example.com", "password": "correct-horse", "role": "admin"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "User created successfully")
	})
}
