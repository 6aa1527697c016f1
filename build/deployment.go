package build

// DeploymentType tells development and production builds apart. The active
// value is the Deployment constant, chosen with the dev build tag.
type DeploymentType byte

const (
	// Development builds log at debug level by default.
	Development DeploymentType = iota

	// Production builds log at info level by default.
	Production
)

// String returns the name of the deployment.
func (b DeploymentType) String() string {
	switch b {
	case Development:
		return "development"

	case Production:
		return "production"

	default:
		return "unknown"
	}
}

// IsDevBuild reports whether the binary was built with the dev tag.
func IsDevBuild() bool {
	return Deployment == Development
}

// DefaultLogLevel is the debug level used when none is configured: debug
// for development builds and info otherwise.
func DefaultLogLevel() string {
	if IsDevBuild() {
		return "debug"
	}

	return "info"
}
