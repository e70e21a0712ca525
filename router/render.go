package router

import (
	"fmt"
	"io"
)

const (
	signInTitle    = "Sign in"
	signInSubtitle = "Sign in with Apple or Google"
	loadingLine    = "⠋ Loading..."
)

// Render writes the text screen for route. email is shown on the dashboard.
func Render(w io.Writer, route, email string) error {
	colour := routeColors[route]
	var err error
	switch route {
	case RouteSignIn:
		_, err = fmt.Fprintf(w, "%s %s %s\n%s\n", colour, signInTitle, ResetColor, signInSubtitle)
	case RouteDashboard:
		_, err = fmt.Fprintf(w, "%s Welcome! %s\n%s%s%s\n", colour, ResetColor, Cyan, email, ResetColor)
	case RouteIndex:
		err = RenderLoading(w)
	default:
		_, err = fmt.Fprintf(w, "%sUnknown screen %s%s\n", Red, route, ResetColor)
	}
	return err
}

// RenderLoading writes the wait indicator shown while the session is resolved.
func RenderLoading(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s%s%s\n", Gray, loadingLine, ResetColor)
	return err
}
