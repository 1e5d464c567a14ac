package integration

import (
	"fmt"
	"time"
)

// TestUser generates unique test user credentials using timestamp
func TestUser(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}

// TestCourseSlug generates a unique course slug
func TestCourseSlug(suffix string) string {
	return fmt.Sprintf("course-%d-%s", time.Now().UnixNano(), suffix)
}
