package journey

import (
	"context"
	"time"

	"github.com/hohopark/hoho-journey/internal/client"
	"github.com/hohopark/hoho-journey/internal/config"
	"github.com/hohopark/hoho-journey/internal/logging"
	"github.com/hohopark/hoho-journey/internal/runner"
	"github.com/hohopark/hoho-journey/internal/session"
)

// Deps carries what the built-in journeys need.
type Deps struct {
	Client Caller
	User   config.UserCredentials
	Admin  config.AdminCredentials
	// Pause is how long the "open app" step idles. Zero skips the wait.
	Pause time.Duration
}

// Builtin returns the seven user journeys in run order.
func Builtin(d Deps) []Journey {
	return []Journey{
		registration(d),
		browseAndCollect(d),
		airdrop(d),
		marketplace(d),
		profile(d),
		thirdParty(d),
		adminManagement(d),
	}
}

func registration(d Deps) Journey {
	return Journey{
		Name:        "New user registration",
		Description: "A first-time user opens the app, registers, and receives the sign-up points.",
		Steps: []Step{
			{
				Name: "Open mini-program",
				Run: func(ctx context.Context, _ *session.Session) (runner.Outcome, error) {
					if d.Pause <= 0 {
						return runner.Pass(), nil
					}
					select {
					case <-time.After(d.Pause):
						return runner.Pass(), nil
					case <-ctx.Done():
						return runner.Outcome{}, ctx.Err()
					}
				},
			},
			{
				Name:     "Register user",
				Provides: []string{session.UserToken, session.UserID},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "POST", "/api/v1/auth/register", map[string]string{
						"phone":    d.User.Phone,
						"password": d.User.Password,
						"code":     d.User.Code,
					}, "")
					if !res.OK() || !res.Has("token") {
						return runner.Fail("%s: no token in response", res.Describe()), nil
					}
					s.Set(session.UserToken, res.String("token"))
					s.Set(session.UserID, res.String("user_id"))
					return runner.Passf("registered user %s", res.String("user_id")), nil
				},
			},
			{
				Name:  "Receive registration reward",
				Needs: []string{session.UserToken},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "GET", "/api/v1/user/points", nil, s.Value(session.UserToken))
					if !res.OK() || !res.Has("balance") {
						return runner.Fail("%s: no balance in response", res.Describe()), nil
					}
					return runner.Passf("reward balance: %s points", res.String("balance")), nil
				},
			},
		},
	}
}

func browseAndCollect(d Deps) Journey {
	return Journey{
		Name:        "Browse and collect",
		Description: "Browse the asset catalogue, open an asset, and look at community events.",
		Steps: []Step{
			{
				Name:     "Browse asset list",
				Provides: []string{session.AssetID},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "GET", "/api/v1/assets", nil, "")
					if !res.OK() || !res.Has("list") {
						return runner.Fail("%s: no list in response", res.Describe()), nil
					}
					assets := res.List("list")
					if id := firstID(assets); id != "" {
						s.Set(session.AssetID, id)
						return runner.Passf("found %d assets; selected asset %s", len(assets), id), nil
					}
					return runner.Passf("found %d assets", len(assets)), nil
				},
			},
			{
				Name:  "View asset detail",
				Needs: []string{session.AssetID},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "GET", "/api/v1/assets/"+s.Value(session.AssetID), nil, "")
					if !res.OK() {
						return runner.Fail("%s", res.Describe()), nil
					}
					return runner.Passf("%s: supply %s, minted %s",
						orNA(res.String("name")), orZero(res.String("total_supply")), orZero(res.String("minted_count"))), nil
				},
			},
			{
				Name: "Browse community events",
				Run:  listStep(d.Client, "/api/v1/events", "", "events"),
			},
		},
	}
}

func airdrop(d Deps) Journey {
	return Journey{
		Name:        "Participate in airdrop",
		Description: "List airdrop campaigns and join one if any is active.",
		Steps: []Step{
			{
				Name:  "View airdrop list",
				Needs: []string{session.UserToken},
				Run:   listStep(d.Client, "/api/v1/airdrops", session.UserToken, "airdrops"),
			},
			{
				// No fixture exposes an active airdrop yet.
				Name: "Join airdrop",
				Run: func(context.Context, *session.Session) (runner.Outcome, error) {
					return runner.Skip("skipped: no active airdrop"), nil
				},
			},
		},
	}
}

func marketplace(d Deps) Journey {
	return Journey{
		Name:        "Marketplace trading",
		Description: "Browse the exchange market and inspect a listing.",
		Steps: []Step{
			{
				Name:     "Browse marketplace",
				Provides: []string{session.ListingID},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "GET", "/api/v1/listings", nil, "")
					if !res.OK() {
						return runner.Fail("%s", res.Describe()), nil
					}
					listings := res.List("list")
					if id := firstID(listings); id != "" {
						s.Set(session.ListingID, id)
					}
					return runner.Passf("%d listings on the market", len(listings)), nil
				},
			},
			{
				Name:  "View listing detail",
				Needs: []string{session.ListingID},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "GET", "/api/v1/listings/"+s.Value(session.ListingID), nil, "")
					if !res.OK() {
						return runner.Fail("%s", res.Describe()), nil
					}
					return runner.Passf("price: %s points", orZero(res.String("price"))), nil
				},
			},
		},
	}
}

func profile(d Deps) Journey {
	return Journey{
		Name:        "Profile management",
		Description: "Check the personal centre: profile, owned assets, and point history.",
		Steps: []Step{
			{
				Name:  "View profile",
				Needs: []string{session.UserToken},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "GET", "/api/v1/user/profile", nil, s.Value(session.UserToken))
					if !res.OK() {
						return runner.Fail("%s", res.Describe()), nil
					}
					nickname := res.String("nickname")
					if nickname == "" {
						nickname = "(not set)"
					}
					return runner.Passf("uid %s, nickname %s", orNA(res.String("uid")), nickname), nil
				},
			},
			{
				Name:  "View my assets",
				Needs: []string{session.UserToken},
				Run:   listStep(d.Client, "/api/v1/user/assets", session.UserToken, "owned assets"),
			},
			{
				Name:  "View point history",
				Needs: []string{session.UserToken},
				Run:   listStep(d.Client, "/api/v1/user/points/history", session.UserToken, "point records"),
			},
		},
	}
}

func thirdParty(d Deps) Journey {
	return Journey{
		Name:        "Third-party platform link",
		Description: "Read assets synced from the linked Jingtan account.",
		Steps: []Step{
			{
				Name:  "View Jingtan assets",
				Needs: []string{session.UserToken},
				Run:   listStep(d.Client, "/api/v1/jingtan/assets", session.UserToken, "Jingtan assets"),
			},
		},
	}
}

func adminManagement(d Deps) Journey {
	return Journey{
		Name:        "Admin management",
		Description: "An operator signs in to the back office and reviews users and statistics.",
		Steps: []Step{
			{
				Name:     "Admin login",
				Provides: []string{session.AdminToken},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "POST", "/admin/login", map[string]string{
						"username": d.Admin.Username,
						"password": d.Admin.Password,
					}, "")
					if !res.OK() || !res.Has("token") {
						return runner.Fail("%s: no token in response", res.Describe()), nil
					}
					s.Set(session.AdminToken, res.String("token"))
					return runner.Passf("signed in as %s", d.Admin.Username), nil
				},
			},
			{
				Name:  "View user list",
				Needs: []string{session.AdminToken},
				Run:   listStep(d.Client, "/admin/users", session.AdminToken, "users"),
			},
			{
				Name:  "View system statistics",
				Needs: []string{session.AdminToken},
				Run: func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
					res := d.Client.Call(ctx, "GET", "/admin/stats", nil, s.Value(session.AdminToken))
					if !res.OK() {
						return runner.Fail("%s", res.Describe()), nil
					}
					return runner.Passf("stats: %s", logging.Truncate(res.Raw, 100)), nil
				},
			},
		},
	}
}

// listStep GETs path and passes when the server answers successfully,
// reporting how many entries the "list" field holds. tokenKey names the
// session token to send, or "" for public endpoints.
func listStep(c Caller, path, tokenKey, noun string) StepFunc {
	return func(ctx context.Context, s *session.Session) (runner.Outcome, error) {
		token := ""
		if tokenKey != "" {
			token = s.Value(tokenKey)
		}
		res := c.Call(ctx, "GET", path, nil, token)
		if !res.OK() {
			return runner.Fail("%s", res.Describe()), nil
		}
		return runner.Passf("%d %s", len(res.List("list")), noun), nil
	}
}

// firstID returns the "id" of the first object in list, or "".
func firstID(list []any) string {
	if len(list) == 0 {
		return ""
	}
	obj, ok := list[0].(map[string]any)
	if !ok {
		return ""
	}
	return client.FormatValue(obj["id"])
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
