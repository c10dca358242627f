package models

// ImportRow is one spreadsheet line fed into the bulk import. Study names
// are comma separated; empty optional cells arrive as empty strings.
type ImportRow struct {
	Line        int    `json:"line"`
	FirstName   string `json:"first_name"`
	MiddleName  string `json:"middle_name"`
	Paternal    string `json:"last_name_paternal"`
	Maternal    string `json:"last_name_maternal"`
	CURP        string `json:"curp"`
	Code        string `json:"code"`
	BirthDate   string `json:"birth_date"`
	Sex         string `json:"sex"`
	Phone       string `json:"phone"`
	Studies     string `json:"studies"`
	PaymentDate string `json:"payment_date"`
}

// ImportError reports a single skipped row.
type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult accumulates the outcome of one batch. Row failures never
// abort the batch; they land in Errors while the rest proceeds.
type ImportResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Skipped int           `json:"skipped"`
	Errors  []ImportError `json:"errors"`
}
