package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPlatformFlow exercises registration, login, enrollment, lesson
// completion, and certificate issuance against a real database.
func TestPlatformFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer testDB.Teardown(ctx)

	server := NewTestServer(testDB.DB)
	defer server.Close()

	email, password := TestUser("flow")

	// Register
	resp, err := server.Request(http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     "Flow Tester",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Login
	resp, err = server.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, refreshToken, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	// Seed a small course and enroll through the API
	slug := TestCourseSlug("flow")
	_, lessonIDs, err := SeedCourse(ctx, testDB.Pool, slug, 2)
	require.NoError(t, err)

	// Catalog detail groups lessons under their modules
	resp, err = server.Request(http.MethodGet, "/courses/"+slug, nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail struct {
		Course struct {
			Slug string `json:"slug"`
		} `json:"course"`
		Modules []struct {
			Module struct {
				ID string `json:"id"`
			} `json:"module"`
			Lessons []struct {
				ID       string `json:"id"`
				ModuleID string `json:"module_id"`
			} `json:"lessons"`
		} `json:"modules"`
	}
	require.NoError(t, ParseJSONResponse(resp, &detail))
	assert.Equal(t, slug, detail.Course.Slug)
	require.Len(t, detail.Modules, 1)
	require.Len(t, detail.Modules[0].Lessons, 2)
	for _, lesson := range detail.Modules[0].Lessons {
		assert.Equal(t, detail.Modules[0].Module.ID, lesson.ModuleID)
	}

	resp, err = server.RequestWithAuth(http.MethodPost, "/courses/"+slug+"/enroll", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Complete the first lesson: course still in progress
	resp, err = server.RequestWithAuth(http.MethodPost, "/lessons/"+lessonIDs[0]+"/complete", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		CourseCompleted bool `json:"course_completed"`
		Certificate     *struct {
			Number string `json:"number"`
		} `json:"certificate"`
	}
	require.NoError(t, ParseJSONResponse(resp, &result))
	assert.False(t, result.CourseCompleted)
	assert.Nil(t, result.Certificate)

	// Complete the last lesson: course completes and a certificate issues
	resp, err = server.RequestWithAuth(http.MethodPost, "/lessons/"+lessonIDs[1]+"/complete", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ParseJSONResponse(resp, &result))
	assert.True(t, result.CourseCompleted)
	require.NotNil(t, result.Certificate)
	require.NotEmpty(t, result.Certificate.Number)

	// Re-completing the same lesson changes nothing: the progress row
	// is reused and the existing certificate comes back
	firstNumber := result.Certificate.Number
	resp, err = server.RequestWithAuth(http.MethodPost, "/lessons/"+lessonIDs[1]+"/complete", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ParseJSONResponse(resp, &result))
	assert.True(t, result.CourseCompleted)
	require.NotNil(t, result.Certificate)
	assert.Equal(t, firstNumber, result.Certificate.Number)

	resp, err = server.RequestWithAuth(http.MethodGet, "/courses/"+slug+"/progress", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var progress struct {
		Completion struct {
			TotalLessons     int `json:"total_lessons"`
			CompletedLessons int `json:"completed_lessons"`
		} `json:"completion"`
	}
	require.NoError(t, ParseJSONResponse(resp, &progress))
	assert.Equal(t, 2, progress.Completion.TotalLessons)
	assert.Equal(t, 2, progress.Completion.CompletedLessons)

	resp, err = server.RequestWithAuth(http.MethodGet, "/certificates", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var certList struct {
		Certificates []struct {
			Number string `json:"number"`
		} `json:"certificates"`
	}
	require.NoError(t, ParseJSONResponse(resp, &certList))
	require.Len(t, certList.Certificates, 1)
	assert.Equal(t, firstNumber, certList.Certificates[0].Number)

	// Public verification works without authentication
	resp, err = server.Request(http.MethodGet, "/certificates/"+result.Certificate.Number+"/verify", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verification struct {
		Valid       bool   `json:"valid"`
		HolderName  string `json:"holder_name"`
		CourseTitle string `json:"course_title"`
	}
	require.NoError(t, ParseJSONResponse(resp, &verification))
	assert.True(t, verification.Valid)
	assert.Equal(t, "Flow Tester", verification.HolderName)

	// Certificate email was dispatched
	lastEmail := server.EmailService.GetLastEmail()
	require.NotNil(t, lastEmail)
	assert.Equal(t, email, lastEmail.To)
	assert.Contains(t, lastEmail.Body, result.Certificate.Number)
}

// TestLoginRateLimiting verifies the lockout after repeated failures.
func TestLoginRateLimiting(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer testDB.Teardown(ctx)

	server := NewTestServer(testDB.DB)
	defer server.Close()

	email, password := TestUser("lockout")
	_, err = SeedUser(ctx, testDB.Pool, email, password, "user")
	require.NoError(t, err)

	// Burn the failure budget
	for i := 0; i < server.Config.Auth.MaxFailedAttempts; i++ {
		resp, err := server.Request(http.MethodPost, "/auth/login", map[string]string{
			"email":    email,
			"password": "wrong-password-123",
		}, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	// Correct credentials are refused while locked out
	resp, err := server.Request(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}
