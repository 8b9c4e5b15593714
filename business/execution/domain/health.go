package domain

// HealthStatus is the executor's introspection read.
type HealthStatus struct {
	Healthy      bool
	Status       string
	TokenCount   int
	VenueCount   int
	FailureCount uint32
}
