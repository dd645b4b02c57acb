// Package platform is the authenticated client for the platform REST API.
//
// Client composes the token lifecycle from internal/oauth with the retry
// executor from internal/retry. Callers never see raw transport errors:
// every failure is returned as an *apierror.Error carrying a category, a
// user message and a suggestion.
package platform
