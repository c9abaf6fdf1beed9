package registry

import "github.com/lonestardev/dialcore/core"

// Role-default daily quotas. Zero means unlimited (the receptionist takes
// inbound calls only and is never quota-gated).
const (
	DefaultOutboundQuota    = 40
	DefaultFollowUpQuota    = 30
	DefaultDispositionQuota = 25
)

// DefaultRoster returns the stock team shape used by examples and seeds: one
// always-on receptionist, a territory-partitioned outbound bench with
// staggered calling windows, and follow-up/disposition closers.
func DefaultRoster() []*core.Agent {
	return []*core.Agent{
		{ID: "zara", Name: "Zara", Role: core.RoleReceptionist, Territories: []string{"All"}},
		{ID: "ace", Name: "Ace", Role: core.RoleOutboundCaller, Territories: []string{"Harris N", "Harris E"}, Schedule: "9:00 AM - 11:30 AM", DailyQuota: DefaultOutboundQuota},
		{ID: "maya", Name: "Maya", Role: core.RoleOutboundCaller, Territories: []string{"Harris S", "Harris W"}, Schedule: "9:30 AM - 12:00 PM", DailyQuota: DefaultOutboundQuota},
		{ID: "eli", Name: "Eli", Role: core.RoleOutboundCaller, Territories: []string{"Fort Bend", "Brazoria"}, Schedule: "10:00 AM - 12:30 PM", DailyQuota: DefaultOutboundQuota},
		{ID: "nova", Name: "Nova", Role: core.RoleOutboundCaller, Territories: []string{"Montgomery", "Walker"}, Schedule: "10:30 AM - 1:00 PM", DailyQuota: DefaultOutboundQuota},
		{ID: "raven", Name: "Raven", Role: core.RoleOutboundCaller, Territories: []string{"Galveston", "Chambers"}, Schedule: "1:00 PM - 3:30 PM", DailyQuota: DefaultOutboundQuota},
		{ID: "jett", Name: "Jett", Role: core.RoleOutboundCaller, Territories: []string{"Liberty", "San Jacinto"}, Schedule: "1:30 PM - 4:00 PM", DailyQuota: DefaultOutboundQuota},
		{ID: "sage", Name: "Sage", Role: core.RoleOutboundCaller, Territories: []string{"Waller", "Austin Co"}, Schedule: "2:00 PM - 4:30 PM", DailyQuota: DefaultOutboundQuota},
		{ID: "finn", Name: "Finn", Role: core.RoleOutboundCaller, Territories: []string{"Colorado", "Wharton", "Matagorda"}, Schedule: "2:30 PM - 5:00 PM", DailyQuota: DefaultOutboundQuota},
		{ID: "luna", Name: "Luna", Role: core.RoleFollowUp, Territories: []string{"All"}, Schedule: "10:00 AM - 2:00 PM", DailyQuota: DefaultFollowUpQuota},
		{ID: "blaze", Name: "Blaze", Role: core.RoleDisposition, Territories: []string{"All"}, Schedule: "9:00 AM - 5:00 PM", DailyQuota: DefaultDispositionQuota},
	}
}
