package schedule

import "compliance_notifier/internal/domain/dueitem"

// Urgency grades a window. SMS is suppressed for low-urgency windows
// regardless of the window's own channel list.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Rank orders urgencies from low (0) to critical (3).
func (u Urgency) Rank() int {
	switch u {
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyCritical:
		return 3
	default:
		return 0
	}
}

// Audience selects which contacts a window notifies.
type Audience string

const (
	AudienceVendor Audience = "vendor"
	AudienceClient Audience = "client"
	AudienceBoth   Audience = "both"
)

// Channel is a delivery transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Window is one configured notification rule: fire for the given
// audience over the given channels once an item is DaysOut days (or
// fewer) from its due date. Negative DaysOut means days past due.
// Label doubles as the dedup marker key.
type Window struct {
	DaysOut  int
	Label    string
	Urgency  Urgency
	Audience Audience
	Channels []Channel
}

// HasChannel reports whether the window's channel list includes c.
func (w Window) HasChannel(c Channel) bool {
	for _, ch := range w.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// serviceRecordWindows is the cadence for vendor service records:
// 30/14/7/3/1 days before due (vendor-facing), a client-facing
// due-today alert, and a single overdue escalation 7 days past due.
// Ordered strictly descending by DaysOut.
var serviceRecordWindows = []Window{
	{DaysOut: 30, Label: "reminder_30d", Urgency: UrgencyLow, Audience: AudienceVendor, Channels: []Channel{ChannelEmail}},
	{DaysOut: 14, Label: "reminder_14d", Urgency: UrgencyLow, Audience: AudienceVendor, Channels: []Channel{ChannelEmail}},
	{DaysOut: 7, Label: "reminder_7d", Urgency: UrgencyMedium, Audience: AudienceVendor, Channels: []Channel{ChannelEmail, ChannelSMS}},
	{DaysOut: 3, Label: "reminder_3d", Urgency: UrgencyMedium, Audience: AudienceVendor, Channels: []Channel{ChannelEmail, ChannelSMS}},
	{DaysOut: 1, Label: "reminder_1d", Urgency: UrgencyHigh, Audience: AudienceVendor, Channels: []Channel{ChannelEmail, ChannelSMS}},
	{DaysOut: 0, Label: "client_due_day_alert", Urgency: UrgencyMedium, Audience: AudienceClient, Channels: []Channel{ChannelEmail}},
	{DaysOut: -7, Label: "overdue_7d", Urgency: UrgencyCritical, Audience: AudienceBoth, Channels: []Channel{ChannelEmail, ChannelSMS}},
}

// documentWindows is the cadence for expiring documents. Documents have
// no vendor contact, so every window targets the client org.
var documentWindows = []Window{
	{DaysOut: 30, Label: "expiry_30d", Urgency: UrgencyLow, Audience: AudienceClient, Channels: []Channel{ChannelEmail}},
	{DaysOut: 14, Label: "expiry_14d", Urgency: UrgencyMedium, Audience: AudienceClient, Channels: []Channel{ChannelEmail}},
	{DaysOut: 7, Label: "expiry_7d", Urgency: UrgencyHigh, Audience: AudienceClient, Channels: []Channel{ChannelEmail, ChannelSMS}},
	{DaysOut: 1, Label: "expiry_1d", Urgency: UrgencyCritical, Audience: AudienceClient, Channels: []Channel{ChannelEmail, ChannelSMS}},
	{DaysOut: 0, Label: "expired_today", Urgency: UrgencyCritical, Audience: AudienceClient, Channels: []Channel{ChannelEmail, ChannelSMS}},
	{DaysOut: -7, Label: "overdue_7d", Urgency: UrgencyCritical, Audience: AudienceClient, Channels: []Channel{ChannelEmail, ChannelSMS}},
}

// ForKind returns the window table for an item kind.
func ForKind(k dueitem.Kind) []Window {
	if k == dueitem.KindDocument {
		return documentWindows
	}
	return serviceRecordWindows
}

// Resolve returns the tightest reached window: the one with the
// smallest DaysOut that is still >= daysUntil. An item that skipped
// several checks (the job didn't run for days) therefore fires only
// the window closest to its actual position, never the earlier ones it
// missed. Bounded notification volume over complete history.
func Resolve(windows []Window, daysUntil int) (Window, bool) {
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].DaysOut >= daysUntil {
			return windows[i], true
		}
	}
	return Window{}, false
}
