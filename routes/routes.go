// Package routes wires the gin router: api.go holds the /v1/* address
// comparison and admin endpoints, web.go holds the root info/status
// endpoints, and SetupAllRoutes composes both plus middleware.
package routes
