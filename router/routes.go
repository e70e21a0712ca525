package router

// Route path constants
// All screens are defined here to ensure consistency and prevent typos
const (
	// Entry point, redirects once the session state is known
	RouteIndex = "/"

	// Auth group - sign in with Apple or Google
	RouteSignIn = "/(auth)"

	// Dashboard group - signed in users only
	RouteDashboard = "/(dashboard)"
)

// Decision is what the index route should do for the current session state.
type Decision struct {
	Loading  bool
	Redirect string
}

// Resolve decides where the index route goes. While the session state is
// loading it waits without redirecting.
func Resolve(isLoading, hasSession bool) Decision {
	if isLoading {
		return Decision{Loading: true}
	}
	if hasSession {
		return Decision{Redirect: RouteDashboard}
	}
	return Decision{Redirect: RouteSignIn}
}
