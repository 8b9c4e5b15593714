// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/flash-arb/business/execution/app"
	"github.com/fd1az/flash-arb/business/execution/infra/events"
	"github.com/fd1az/flash-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Executor = di.NewToken[*app.Executor]("execution.Executor")
	Recorder = di.NewToken[*events.Recorder]("execution.Recorder")
)

// Private dependency tokens - internal to execution module
var (
	LoanFacility  = di.NewToken[app.LoanFacility]("execution:loanFacility")
	VenueAdapters = di.NewToken[[]app.VenueAdapter]("execution:venueAdapters")
)

// Helper functions for type-safe access
func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetRecorder(c di.ServiceRegistry) *events.Recorder {
	return di.GetToken(c, Recorder)
}

func GetLoanFacility(c di.ServiceRegistry) app.LoanFacility {
	return di.GetToken(c, LoanFacility)
}

func GetVenueAdapters(c di.ServiceRegistry) []app.VenueAdapter {
	return di.GetToken(c, VenueAdapters)
}
