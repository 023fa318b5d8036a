package authclient

import (
	"fmt"

	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns a map of helper functions and data that can be used
// with go-template's WithGlobalData option for session-aware templates.
//
// Usage:
//
//	renderer, err := template.NewRenderer(
//	    template.WithBaseDir("./templates"),
//	    template.WithGlobalData(authclient.TemplateHelpers()),
//	)
//
// In templates, you can then use:
//
//	{% if current_user %}
//	{% if is_authenticated(current_user) %}
//	{% for hint in password_hints(policy) %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"password_hints":   PasswordPolicyHints,
	}
}

// TemplateHelpersWithSession returns template helpers with the current session
// snapshot injected: current_user, session_loading, and the password policy.
func TemplateHelpersWithSession(session Session) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = session.User
	helpers["session_loading"] = session.Loading
	helpers["policy"] = PolicyViewContext(session.Policy)
	return helpers
}

// PolicyViewContext renders the password policy as template data. A nil
// policy yields nil so templates can skip the hints block entirely.
func PolicyViewContext(p *PasswordPolicy) router.ViewContext {
	if p == nil {
		return nil
	}
	return router.ViewContext{
		"min_length":         p.MinLength,
		"require_mixed_case": p.RequireMixedCase,
		"require_special":    p.RequireSpecial,
		"history_limit":      p.HistoryLimit,
		"hints":              PasswordPolicyHints(p),
	}
}

// PasswordPolicyHints turns the advisory policy into display strings. The
// remote service remains the enforcer; these only set expectations.
func PasswordPolicyHints(p *PasswordPolicy) []string {
	if p == nil {
		return nil
	}

	var hints []string
	if p.MinLength > 0 {
		hints = append(hints, fmt.Sprintf("At least %d characters", p.MinLength))
	}
	if p.RequireMixedCase {
		hints = append(hints, "Upper and lower case letters")
	}
	if p.RequireSpecial {
		hints = append(hints, "At least one special character")
	}
	if p.HistoryLimit > 0 {
		hints = append(hints, fmt.Sprintf("Different from your last %d passwords", p.HistoryLimit))
	}
	return hints
}

// isAuthenticated checks if the provided user object is not nil
func isAuthenticated(user any) bool {
	if user == nil {
		return false
	}

	switch u := user.(type) {
	case *User:
		return u != nil
	case User:
		return true
	case map[string]any:
		// Handle JSON-converted user objects
		return len(u) > 0
	default:
		return false
	}
}
