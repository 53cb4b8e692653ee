package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triggers(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	require.NotEmpty(t, raw, "HX-Trigger header not set")
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Status(http.StatusCreated).Header("X-Custom", "value").Body([]byte("test")).Write(w)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "test", w.Body.String())
	assert.Equal(t, "value", w.Header().Get("X-Custom"))
	assert.Empty(t, w.Header().Get("HX-Trigger"))
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerStoreChanged(7).
		TriggerFormReset().
		TriggerSuccessNotification(MsgAdded).
		Write(w)

	got := triggers(t, w)
	assert.JSONEq(t, `{"revision":7}`, string(got[EventStoreChanged]))
	assert.Contains(t, got, EventFormReset)
	assert.JSONEq(t, `{"type":"success","message":"Transaction added successfully!","duration":3000}`, string(got[EventNotification]))
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{"bad request", BadRequestError("Invalid input"), http.StatusBadRequest, `<div class="error">Invalid input</div>`},
		{"unprocessable entity", UnprocessableEntityError("Validation failed"), http.StatusUnprocessableEntity, `<div class="error">Validation failed</div>`},
		{"internal server error", InternalServerError("Something broke"), http.StatusInternalServerError, `<div class="error">Something broke</div>`},
		{"not found", NotFoundError("Resource not found"), http.StatusNotFound, `<div class="error">Resource not found</div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			assert.Contains(t, string(triggers(t, w)[EventNotification]), `"type":"error"`)
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError("<script>alert('xss')</script>").Write(w)

	assert.NotContains(t, w.Body.String(), "<script>")
	assert.Contains(t, w.Body.String(), "&lt;script&gt;")
}

func TestNotificationTypes(t *testing.T) {
	tests := []struct {
		notifType NotificationType
		want      string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		NewHTMXResponse().TriggerNotification(tt.notifType, "test", 1000).Write(w)
		assert.Contains(t, w.Header().Get("HX-Trigger"), `"type":"`+tt.want+`"`)
	}
}
