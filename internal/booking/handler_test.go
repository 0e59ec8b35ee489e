package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalboard/petalboard-backend/internal/event"
)

func newTestRouter(env *testEnv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(env.svc)
	r.POST("/public/events/:code/rsvps", h.Create)
	r.PUT("/public/events/:code/rsvps", h.Update)
	r.POST("/public/events/:code/rsvps/lookup", h.Lookup)
	r.POST("/public/events/:code/rsvps/cancel", h.Cancel)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCreateAndLookup(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t, "party", nil, slotQuestion("Bring chairs", 1))
	r := newTestRouter(env)
	slot := ev.Questions[0].ID

	w := doJSON(r, http.MethodPost, "/public/events/party/rsvps",
		fmt.Sprintf(`{"name":"Ada","pin":"1234","responses":{"%d":"yes"}}`, slot))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(1), result.RSVPCount)
	assert.Equal(t, int64(1), result.PerQuestionTaken[slot])

	w = doJSON(r, http.MethodPost, "/public/events/party/rsvps/lookup",
		fmt.Sprintf(`{"rsvpId":%q,"pin":"1234"}`, result.RSVPID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var lookup struct {
		RSVP      event.RSVP      `json:"rsvp"`
		Responses map[uint]string `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lookup))
	assert.Equal(t, "Ada", lookup.RSVP.Name)
	assert.Equal(t, "yes", lookup.Responses[slot])
	assert.NotContains(t, w.Body.String(), "pin_hash")

	w = doJSON(r, http.MethodPost, "/public/events/party/rsvps/lookup",
		fmt.Sprintf(`{"rsvpId":%q,"pin":"9999"}`, result.RSVPID))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerErrorBodies(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t, "party", nil, slotQuestion("Bring chairs", 1))
	r := newTestRouter(env)
	slot := ev.Questions[0].ID

	w := doJSON(r, http.MethodPost, "/public/events/party/rsvps", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/public/events/party/rsvps",
		fmt.Sprintf(`{"name":"Ada","pin":"1234","responses":{"%d":"yes"}}`, slot))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/public/events/party/rsvps",
		fmt.Sprintf(`{"name":"Grace","pin":"5678","responses":{"%d":"me too"}}`, slot))
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(KindCapacityExceeded), body["kind"])
	assert.Equal(t, float64(slot), body["questionId"])

	w = doJSON(r, http.MethodPost, "/public/events/party/rsvps", `{"name":"Grace","pin":"12"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(KindValidation), body["kind"])
	assert.Contains(t, body["fieldErrors"], "pin")

	w = doJSON(r, http.MethodPost, "/public/events/nope/rsvps", `{"name":"Grace","pin":"1234"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
