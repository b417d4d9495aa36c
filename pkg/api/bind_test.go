package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/api"
)

type payload struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level,omitempty" validate:"omitempty,oneof=LOW HIGH"`
}

func TestBindJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     error
	}{
		{name: "valid", contentType: "application/json", body: `{"name":"a"}`},
		{name: "charset parameter", contentType: "application/json; charset=utf-8", body: `{"name":"a"}`},
		{name: "missing content type", body: `{"name":"a"}`, wantErr: api.ErrMissingContentType},
		{name: "wrong media type", contentType: "text/plain", body: `{"name":"a"}`, wantErr: api.ErrUnsupportedMediaType},
		{name: "empty body", contentType: "application/json", wantErr: api.ErrFailedToParseJSON},
		{name: "unknown field", contentType: "application/json", body: `{"name":"a","x":1}`, wantErr: api.ErrFailedToParseJSON},
		{name: "trailing data", contentType: "application/json", body: `{"name":"a"}[]`, wantErr: api.ErrFailedToParseJSON},
		{name: "too large", contentType: "application/json", body: `{"name":"` + strings.Repeat("a", api.DefaultMaxJSONSize) + `"}`, wantErr: api.ErrFailedToParseJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			var v payload
			err := api.BindJSON()(req, &v)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a", v.Name)
		})
	}
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	v := api.NewValidator()

	require.NoError(t, api.ValidateStruct(v, &payload{Name: "a", Level: "LOW"}))

	err := api.ValidateStruct(v, &payload{Level: "MID"})
	var valErr api.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, []string{"is required"}, valErr["name"])
	assert.Equal(t, []string{"must be one of LOW HIGH"}, valErr["level"])
	assert.Equal(t, "validation failed: level, name", err.Error())
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("decorators run outermost first", func(t *testing.T) {
		t.Parallel()
		var order []string
		mark := func(name string) api.Decorator[struct{}] {
			return func(next api.HandlerFunc[struct{}]) api.HandlerFunc[struct{}] {
				return func(r *http.Request, req struct{}) api.Response {
					order = append(order, name)
					return next(r, req)
				}
			}
		}
		h := api.Wrap(func(*http.Request, struct{}) api.Response {
			order = append(order, "handler")
			return api.JSON(map[string]string{"ok": "yes"}, api.WithStatus(http.StatusAccepted))
		}, api.WithDecorators(mark("outer"), mark("inner")))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, []string{"outer", "inner", "handler"}, order)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		h := api.Wrap(func(*http.Request, struct{}) api.Response { return nil })

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), api.ErrNilResponse.Error())
	})

	t.Run("non-applicable binders are skipped", func(t *testing.T) {
		t.Parallel()
		skip := func(*http.Request, any) error { return api.ErrBinderNotApplicable }
		h := api.Wrap(func(*http.Request, struct{}) api.Response { return api.JSON("ok") },
			api.WithBinders[struct{}](skip))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
