// Package di contains dependency injection tokens for the feed context.
package di

import (
	"github.com/fd1az/flash-arb/business/feed/app"
	"github.com/fd1az/flash-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("feed.Service")
)

// Private dependency tokens - internal to feed module
var (
	CandidateSource = di.NewToken[app.CandidateSource]("feed:candidateSource")
)

// Helper functions for type-safe access
func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetCandidateSource(c di.ServiceRegistry) app.CandidateSource {
	return di.GetToken(c, CandidateSource)
}
