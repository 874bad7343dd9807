package journey

import (
	"context"

	"github.com/hohopark/hoho-journey/internal/client"
	"github.com/hohopark/hoho-journey/internal/runner"
	"github.com/hohopark/hoho-journey/internal/session"
)

// ExpectStatus returns a step that calls path and passes when the server
// answers with exactly want. Non-2xx expectations are sent with
// client.ExpectFailure so the error body is kept for the detail line.
func ExpectStatus(c Caller, method, path string, body any, want int) StepFunc {
	return func(ctx context.Context, _ *session.Session) (runner.Outcome, error) {
		var opts []client.Option
		if want < 200 || want > 299 {
			opts = append(opts, client.ExpectFailure())
		}
		res := c.Call(ctx, method, path, body, "", opts...)
		switch {
		case res.StatusCode == 0:
			return runner.Fail("%s", res.Describe()), nil
		case res.StatusCode != want:
			return runner.Fail("status mismatch: want %d, got %d", want, res.StatusCode), nil
		}
		return runner.Passf("%s %s -> %d", res.Method, path, res.StatusCode), nil
	}
}

// Smoke returns the endpoint availability suite. Registration and both
// logins are sent with credentials the server must reject.
func Smoke(c Caller) []Journey {
	return []Journey{
		{
			Name:        "API smoke",
			Description: "Check that each public endpoint answers with the expected status.",
			Steps: []Step{
				{Name: "Health check", Run: ExpectStatus(c, "GET", "/api/v1/health", nil, 200)},
				{Name: "User register rejects fake code", Run: ExpectStatus(c, "POST", "/api/v1/users/register", map[string]string{
					"phone":    "13800138000",
					"password": "Test123456",
					"code":     "000000",
				}, 400)},
				{Name: "User login rejects unknown user", Run: ExpectStatus(c, "POST", "/api/v1/users/login", map[string]string{
					"phone":    "10000000000",
					"password": "Test123456",
				}, 401)},
				{Name: "Asset list", Run: ExpectStatus(c, "GET", "/api/v1/assets", nil, 200)},
				{Name: "Listing list", Run: ExpectStatus(c, "GET", "/api/v1/listings", nil, 200)},
				{Name: "Event list", Run: ExpectStatus(c, "GET", "/api/v1/events", nil, 200)},
				{Name: "Admin login rejects unknown admin", Run: ExpectStatus(c, "POST", "/api/v1/admin/login", map[string]string{
					"username": "nonexistent-admin",
					"password": "wrong",
				}, 401)},
			},
		},
	}
}
