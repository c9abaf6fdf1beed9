package core

import "context"

// RelayEvent is the closed set of typed payloads emitted to the workflow /
// notification relay. The relay fans these out to email, SMS and storage
// automations; the core fires and forgets.
type RelayEvent string

const (
	RelayNewLead            RelayEvent = "newLead"
	RelayCallCompleted      RelayEvent = "callCompleted"
	RelayHotLeadAlert       RelayEvent = "hotLeadAlert"
	RelayDealPackageRequest RelayEvent = "dealPackageRequest"
	RelayOfferReceived      RelayEvent = "offerReceived"
	RelayContractSigned     RelayEvent = "contractSigned"
	RelayDailyReportRequest RelayEvent = "dailyReportRequest"
	RelayDoNotContact       RelayEvent = "doNotContact"
)

// Relay delivers typed event payloads to the workflow-automation collaborator.
// Delivery failure is logged by callers and never blocks orchestration.
type Relay interface {
	Publish(ctx context.Context, event RelayEvent, payload any) error
}
