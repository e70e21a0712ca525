package router

const (
	// Standard colors
	Red  = "\033[31m"
	Cyan = "\033[36m"
	Gray = "\033[90m" // Bright black, often appears as gray

	// Inverse video colors
	CyanInverse  = "\033[7;36m"
	GreenInverse = "\033[7;32m"

	ResetColor = "\033[0m" // Reset to default color
)

var routeColors = map[string]string{
	RouteIndex:     Gray,
	RouteSignIn:    CyanInverse,
	RouteDashboard: GreenInverse,
}
