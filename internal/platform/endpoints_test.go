package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func recordingHandler(rec *recorded, status int, response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.EscapedPath()
		rec.query = r.URL.RawQuery
		rec.body = nil
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		respond(status, "application/json", response)(w, r)
	}
}

func TestLogin(t *testing.T) {
	var rec recorded
	client := newTestClient(t, recordingHandler(&rec, http.StatusOK,
		`{"token":"T1","user":{"id":1,"name":"A","role":"member"}}`))

	resp, err := client.Login(context.Background(), Credentials{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/auth/login", rec.path)
	assert.Equal(t, "a@example.com", rec.body["email"])
	assert.Equal(t, "T1", resp.Token)
	assert.Equal(t, User{ID: "1", Name: "A", Role: RoleMember}, resp.User)
	assert.False(t, resp.User.IsAdmin())
}

func TestLoginWithoutToken(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, "application/json", `{"user":{"id":1}}`))

	_, err := client.Login(context.Background(), Credentials{})

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "Server returned no token", protoErr.Message)
}

func TestRegister(t *testing.T) {
	var rec recorded
	client := newTestClient(t, recordingHandler(&rec, http.StatusCreated,
		`{"token":"T9","user":{"id":"u9","name":"New","role":"admin"}}`))

	resp, err := client.Register(context.Background(), Registration{Name: "New", Email: "n@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "/api/auth/register", rec.path)
	assert.Equal(t, "New", rec.body["name"])
	assert.True(t, resp.User.IsAdmin())
}

func TestCurrentUser(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
	}{
		{"envelope", `{"user":{"id":1,"name":"A","role":"member"}}`, false},
		{"bare", `{"id":1,"name":"A","role":"member"}`, false},
		{"empty object", `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec recorded
			client := newTestClient(t, recordingHandler(&rec, http.StatusOK, tt.response))

			user, err := client.CurrentUser(context.Background())

			assert.Equal(t, "/api/auth/me", rec.path)
			if tt.wantErr {
				assert.IsType(t, &ProtocolError{}, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ID("1"), user.ID)
		})
	}
}

func TestIDJSON(t *testing.T) {
	var g Grievance
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"matched_grievance_id":"abc"}`), &g))
	assert.Equal(t, ID("42"), g.ID)
	require.NotNil(t, g.MatchedGrievanceID)
	assert.Equal(t, ID("abc"), *g.MatchedGrievanceID)

	data, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{A: "42", B: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":42,"b":"abc"}`, string(data))
}

func TestListGrievances(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		var rec recorded
		client := newTestClient(t, recordingHandler(&rec, http.StatusOK, `{"grievances":[
			{"id":1,"original_text":"a","duplicate_status":"UNIQUE","similarity_score":0.1,"created_at":"2024-01-01"},
			{"id":2,"original_text":"b","duplicate_status":"DUPLICATE","similarity_score":0.97,"matched_grievance_id":1}
		]}`))

		list, err := client.ListGrievances(context.Background())
		require.NoError(t, err)

		assert.Equal(t, http.MethodGet, rec.method)
		assert.Equal(t, "/api/grievances", rec.path)
		require.Len(t, list, 2)
		assert.Equal(t, StatusDuplicate, list[1].DuplicateStatus)
		assert.InDelta(t, 0.97, list[1].SimilarityScore, 1e-9)
	})

	t.Run("missing field is empty", func(t *testing.T) {
		client := newTestClient(t, respond(http.StatusOK, "application/json", `{}`))

		list, err := client.ListGrievances(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("server error message", func(t *testing.T) {
		client := newTestClient(t, respond(http.StatusInternalServerError, "application/json", `{"error":"db down"}`))

		_, err := client.ListGrievances(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "db down", apiErr.Error())
	})
}

func TestSubmitText(t *testing.T) {
	var rec recorded
	client := newTestClient(t, recordingHandler(&rec, http.StatusCreated,
		`{"message":"Grievance submitted","grievance":{"id":5,"duplicate_status":"NEAR_DUPLICATE","similarity_score":0.82}}`))

	sub, err := client.SubmitText(context.Background(), "the lights are out")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/grievances", rec.path)
	assert.Equal(t, "the lights are out", rec.body["text"])
	assert.Equal(t, "Grievance submitted", sub.Message)
	assert.Equal(t, StatusNearDuplicate, sub.Grievance.DuplicateStatus)
}

func TestComputeStatsAndFilter(t *testing.T) {
	list := []Grievance{
		{ID: "1", DuplicateStatus: StatusUnique},
		{ID: "2", DuplicateStatus: StatusUnique},
		{ID: "3", DuplicateStatus: StatusNearDuplicate},
		{ID: "4", DuplicateStatus: StatusDuplicate},
		{ID: "5", DuplicateStatus: "PENDING"},
	}

	assert.Equal(t, Stats{Total: 5, Unique: 2, NearDuplicate: 1, Duplicate: 1}, ComputeStats(list))
	assert.Equal(t, Stats{}, ComputeStats(nil))

	assert.Len(t, FilterByStatus(list, ""), 5)
	assert.Len(t, FilterByStatus(list, "all"), 5)
	assert.Len(t, FilterByStatus(list, "UNIQUE"), 2)
	assert.Empty(t, FilterByStatus(list, "DUPLICATE_X"))
}

func TestAdminEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("list with status", func(t *testing.T) {
		var rec recorded
		client := newTestClient(t, recordingHandler(&rec, http.StatusOK, `{"grievances":[{"id":1}]}`))

		list, err := client.AdminListGrievances(ctx, "DUPLICATE")
		require.NoError(t, err)
		assert.Equal(t, "/api/admin/grievances", rec.path)
		assert.Equal(t, "status=DUPLICATE", rec.query)
		assert.Len(t, list, 1)

		_, err = client.AdminListGrievances(ctx, "all")
		require.NoError(t, err)
		assert.Empty(t, rec.query)
	})

	t.Run("stats", func(t *testing.T) {
		for _, body := range []string{
			`{"stats":{"total":3,"unique":1,"near_duplicate":1,"duplicate":1}}`,
			`{"total":3,"unique":1,"near_duplicate":1,"duplicate":1}`,
		} {
			client := newTestClient(t, respond(http.StatusOK, "application/json", body))
			stats, err := client.AdminStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, &Stats{Total: 3, Unique: 1, NearDuplicate: 1, Duplicate: 1}, stats)
		}
	})

	t.Run("delete", func(t *testing.T) {
		var rec recorded
		client := newTestClient(t, recordingHandler(&rec, http.StatusOK, `{"message":"deleted"}`))

		require.NoError(t, client.AdminDeleteGrievance(ctx, "a/b"))
		assert.Equal(t, http.MethodDelete, rec.method)
		assert.Equal(t, "/api/admin/grievances/a%2Fb", rec.path)
	})

	t.Run("update status", func(t *testing.T) {
		var rec recorded
		client := newTestClient(t, recordingHandler(&rec, http.StatusOK,
			`{"grievance":{"id":9,"duplicate_status":"UNIQUE"}}`))

		g, err := client.AdminUpdateStatus(ctx, "9", StatusUnique)
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, rec.method)
		assert.Equal(t, "/api/admin/grievances/9", rec.path)
		assert.Equal(t, "UNIQUE", rec.body["duplicate_status"])
		assert.Equal(t, StatusUnique, g.DuplicateStatus)
	})

	t.Run("forbidden", func(t *testing.T) {
		client := newTestClient(t, respond(http.StatusForbidden, "application/json", `{"error":"Admin access required"}`))

		_, err := client.AdminStats(ctx)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.False(t, apiErr.Unauthorized())
		assert.Equal(t, "Admin access required", apiErr.Message)
	})
}
