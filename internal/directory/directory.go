package directory

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/support-router/internal/domain"
)

// Directory is a read-only account lookup keyed case-insensitively.
type Directory struct {
	accounts map[string]domain.Account
}

// New builds a directory over accounts.
func New(accounts []domain.Account) *Directory {
	d := &Directory{accounts: make(map[string]domain.Account, len(accounts))}
	for _, a := range accounts {
		d.accounts[strings.ToUpper(a.Number)] = a
	}
	return d
}

// NewDemo returns the demo customer set with restoration times relative to now.
func NewDemo(now time.Time) *Directory {
	etr := func(minutes int) string {
		return now.UTC().Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339)
	}
	return New([]domain.Account{
		{Number: "ACCT-MERCURY", FirstName: "Freddie", LastName: "Mercury", Name: "Freddie Mercury", Phone: "+1-555-1001", Premise: "1 Bohemian Ave", ETR: etr(30)},
		{Number: "ACCT-BOWIE", FirstName: "David", LastName: "Bowie", Name: "David Bowie", Phone: "+1-555-1002", Premise: "2 Starman Rd", ETR: etr(55)},
		{Number: "ACCT-PRINCE", FirstName: "Prince", LastName: "Nelson", Name: "Prince", Phone: "+1-555-1003", Premise: "3 Purple Ln", ETR: etr(80)},
		{Number: "ACCT-NICKS", FirstName: "Stevie", LastName: "Nicks", Name: "Stevie Nicks", Phone: "+1-555-1004", Premise: "4 Landslide Ct", ETR: etr(120)},
		{Number: "ACCT-COBAIN", FirstName: "Kurt", LastName: "Cobain", Name: "Kurt Cobain", Phone: "+1-555-1005", Premise: "5 Teen Spirit Dr", ETR: etr(25)},
	})
}

// Lookup finds an account by number.
func (d *Directory) Lookup(number string) (domain.Account, bool) {
	a, ok := d.accounts[strings.ToUpper(strings.TrimSpace(number))]
	return a, ok
}

// Status derives the outage snapshot for an account. Unknown accounts are
// reported as not restored with no ETR.
func (d *Directory) Status(number string) domain.OutageStatus {
	a, ok := d.Lookup(number)
	if !ok {
		return domain.OutageStatus{}
	}
	status := domain.OutageStatus{PowerRestored: a.PowerRestored}
	if a.ETR != "" {
		etr := a.ETR
		status.ETR = &etr
	}
	return status
}

// All lists accounts ordered by number.
func (d *Directory) All() []domain.Account {
	out := make([]domain.Account, 0, len(d.accounts))
	for _, a := range d.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
