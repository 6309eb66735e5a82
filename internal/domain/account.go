package domain

// Account is a customer record from the account directory.
type Account struct {
	Number        string `json:"account_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Premise       string `json:"premise"`
	ETR           string `json:"etr"`
	PowerRestored bool   `json:"power_restored"`
}

// OutageStatus is the outage-management snapshot for an account.
type OutageStatus struct {
	PowerRestored bool    `json:"power_restored"`
	ETR           *string `json:"etr"`
}

// ETROr returns the estimated restoration time or fallback when unknown.
func (o OutageStatus) ETROr(fallback string) string {
	if o.ETR == nil || *o.ETR == "" {
		return fallback
	}
	return *o.ETR
}
