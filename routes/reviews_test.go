package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"atchaboyholla-server/storage"
	"atchaboyholla-server/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// buildReviewsApp creates a minimal Iris app with the review routes.
func buildReviewsApp(t *testing.T) *iris.Application {
	t.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	app := iris.New()
	app.Validator = validator.New()
	reviews := app.Party("/api/reviews")
	{
		reviews.Get("/", ListReviews)
		reviews.Post("/", CreateReview)
		reviews.Get("/user/{id:uint}", ListUserReviews)
	}
	require.NoError(t, app.Build())
	return app
}

// signTestToken returns a signed access token for the given user ID.
func signTestToken(t *testing.T, id uint) string {
	signer := jwt.NewSigner(jwt.HS256, "testsecret", time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: id})
	require.NoError(t, err)
	return string(token)
}

// setupMockDB points storage.DB at a sqlmock-backed GORM session.
func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	storage.DB = gdb
	t.Cleanup(func() {
		storage.DB = nil
		db.Close()
	})
	return mock
}

func TestCreateReviewRequiresLoginBeforeAnyDatabaseWork(t *testing.T) {
	app := buildReviewsApp(t)
	// storage.DB stays nil: an anonymous post must never reach it.

	body := `{"title":"T","type":"movie","rating":4.5,"review":"great"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Please login to post a review.")
}

func TestCreateReviewRejectsInvalidRatingStep(t *testing.T) {
	app := buildReviewsApp(t)

	for _, rating := range []string{"0.3", "3.7", "5.5", "-1"} {
		body := `{"title":"T","type":"movie","rating":` + rating + `,"review":"great"}`
		req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, 1))
		resp := httptest.NewRecorder()
		app.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code, "rating %s", rating)
	}
}

func TestCreateReviewRejectsEmptyFields(t *testing.T) {
	app := buildReviewsApp(t)

	cases := []string{
		`{"title":"","type":"movie","rating":4.5,"review":"great"}`,
		`{"title":"T","type":"","rating":4.5,"review":"great"}`,
		`{"title":"T","type":"movie","rating":4.5,"review":""}`,
		`{"title":"   ","type":"movie","rating":4.5,"review":"great"}`,
	}

	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, 1))
		resp := httptest.NewRecorder()
		app.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code, "body %s", body)
	}
}

func TestCreateReviewWithoutDatabaseFailsCleanly(t *testing.T) {
	app := buildReviewsApp(t)
	// storage.DB nil: a fully valid authenticated post must error, not panic.

	body := `{"title":"T","type":"movie","rating":4.5,"review":"great"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, 1))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestListReviewsRendersStatsAndList(t *testing.T) {
	app := buildReviewsApp(t)
	mock := setupMockDB(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews"`)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "title", "type", "rating", "review", "created_at"}).
			AddRow(2, 7, "Newer", "movie", 3.0, "fine", now).
			AddRow(1, 7, "Older", "movie", 4.5, "great", now.Add(-time.Hour)))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles"`)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "display_name", "avatar_path", "created_at", "updated_at"}).
			AddRow(7, "Ann", "", now, now))

	req := httptest.NewRequest(http.MethodGet, "/api/reviews?sort=highest", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Count int `json:"count"`
		Stats struct {
			Count   int     `json:"count"`
			Average float64 `json:"average"`
			Stars   string  `json:"stars"`
		} `json:"stats"`
		Reviews []struct {
			Title       string  `json:"title"`
			Rating      float64 `json:"rating"`
			DisplayName string  `json:"displayName"`
			AvatarURL   string  `json:"avatarURL"`
		} `json:"reviews"`
		Top []struct {
			Title string `json:"title"`
		} `json:"top"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))

	assert.Equal(t, 2, payload.Count)
	assert.Equal(t, 2, payload.Stats.Count)
	assert.InDelta(t, 3.75, payload.Stats.Average, 1e-9)

	require.Len(t, payload.Reviews, 2)
	assert.Equal(t, "Older", payload.Reviews[0].Title) // highest first
	assert.Equal(t, "Ann", payload.Reviews[0].DisplayName)
	assert.Equal(t, DefaultAvatarURL, payload.Reviews[0].AvatarURL)

	require.NotEmpty(t, payload.Top)
	assert.Equal(t, "Older", payload.Top[0].Title)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReviewsDegradesToEmptyOnQueryError(t *testing.T) {
	app := buildReviewsApp(t)
	mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews"`)).
		WillReturnError(assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/api/reviews", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Count int `json:"count"`
		Stats struct {
			Average float64 `json:"average"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, 0, payload.Count)
	assert.Equal(t, 0.0, payload.Stats.Average)
}

func TestListUserReviewsBoundedAndOwned(t *testing.T) {
	app := buildReviewsApp(t)
	mock := setupMockDB(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE user_id = $1`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "title", "type", "rating", "review", "created_at"}).
			AddRow(1, 7, "Mine", "music", 5.0, "all mine", now))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles"`)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "display_name", "avatar_path", "created_at", "updated_at"}).
			AddRow(7, "Ann", "", now, now))

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/user/7", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Mine")
	assert.Contains(t, resp.Body.String(), "Ann")
	assert.NoError(t, mock.ExpectationsWereMet())
}
