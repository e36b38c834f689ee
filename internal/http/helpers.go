package http

import (
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"futurebank/internal/core"
)

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// dashboardURL is the page a non-htmx form post redirects back to.
func dashboardURL(user string) string {
	if user == "" {
		return "/"
	}
	return "/?user=" + url.QueryEscape(user)
}

// resolveUser picks the dashboard user: the requested one, or the first
// household member when none is given.
func resolveUser(requested string, users []string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		if len(users) == 0 {
			return "", core.ErrEmptyUser
		}
		return users[0], nil
	}
	if !slices.Contains(users, requested) {
		return "", core.ErrUnknownUser
	}
	return requested, nil
}

// templateFuncs are the formatting helpers available to every page.
func templateFuncs(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"points":       core.FormatPoints,
		"signedPoints": signed,
		"yen":          core.FormatYen,
		"value": func(d decimal.Decimal) string {
			return d.String()
		},
		"when": func(t time.Time) string {
			return t.In(loc).Format(core.TimestampLayout)
		},
		"dashboard": dashboardURL,
	}
}
