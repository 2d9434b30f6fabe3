package registry

import "fmt"

// IconKey identifies an icon in the frontend icon set. The set is an
// exhaustive enumeration validated at registration time: an unrecognized
// key fails the manifest load instead of silently falling back to a
// default glyph.
type IconKey string

const (
	IconDashboard IconKey = "dashboard"
	IconLeads     IconKey = "leads"
	IconContacts  IconKey = "contacts"
	IconTickets   IconKey = "tickets"
	IconTasks     IconKey = "tasks"
	IconProjects  IconKey = "projects"
	IconPayments  IconKey = "payments"
	IconInvoices  IconKey = "invoices"
	IconReports   IconKey = "reports"
	IconCalendar  IconKey = "calendar"
	IconDocuments IconKey = "documents"
	IconInbox     IconKey = "inbox"
	IconTeam      IconKey = "team"
	IconSettings  IconKey = "settings"
)

var validIcons = map[IconKey]struct{}{
	IconDashboard: {},
	IconLeads:     {},
	IconContacts:  {},
	IconTickets:   {},
	IconTasks:     {},
	IconProjects:  {},
	IconPayments:  {},
	IconInvoices:  {},
	IconReports:   {},
	IconCalendar:  {},
	IconDocuments: {},
	IconInbox:     {},
	IconTeam:      {},
	IconSettings:  {},
}

// ParseIconKey validates a raw icon key against the enumeration.
func ParseIconKey(raw string) (IconKey, error) {
	key := IconKey(raw)
	if _, ok := validIcons[key]; !ok {
		return "", fmt.Errorf("unknown icon key %q", raw)
	}
	return key, nil
}

// String implements fmt.Stringer.
func (k IconKey) String() string {
	return string(k)
}
