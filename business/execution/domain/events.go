package domain

import "time"

// EventType identifies one observable state transition.
type EventType string

const (
	EventTokenWhitelisted     EventType = "token_whitelisted"
	EventTokenDelisted        EventType = "token_delisted"
	EventVenueApproved        EventType = "venue_approved"
	EventVenueRevoked         EventType = "venue_revoked"
	EventSlippageUpdated      EventType = "slippage_updated"
	EventMaxFailuresUpdated   EventType = "max_failures_updated"
	EventFeeConfigUpdated     EventType = "fee_config_updated"
	EventPaused               EventType = "paused"
	EventUnpaused             EventType = "unpaused"
	EventCircuitBreakerReset  EventType = "circuit_breaker_reset"
	EventStatisticsReset      EventType = "statistics_reset"
	EventVaultDeposit         EventType = "vault_deposit"
	EventArbitrageExecuted    EventType = "arbitrage_executed"
	EventProfitDistributed    EventType = "profit_distributed"
	EventSwapFailed           EventType = "swap_failed"
	EventLoanRejected         EventType = "loan_rejected"
	EventEmergencyWithdrawal  EventType = "emergency_withdrawal"
)

// Event is one audit record. Every admin mutation and every settlement emits
// exactly one event per distinct state transition.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	Attributes map[string]string
}

// NewEvent builds an event from alternating key/value attribute pairs.
func NewEvent(t EventType, kv ...string) Event {
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return Event{
		Type:       t,
		Timestamp:  time.Now().UTC(),
		Attributes: attrs,
	}
}
