package registry

// Default returns the registry for the loan-platform schema. Deterministic is
// enabled only for columns that back equality lookups (national id search);
// everything else takes the random-IV path.
func Default() *Registry {
	configs := []FieldConfig{
		{
			Table:         "clients",
			Column:        "national_id",
			Sensitivity:   SensitivityCritical,
			Deterministic: true,
			MaskPattern:   "***{last4}",
			Description:   "Government-issued national identification number",
		},
		{
			Table:       "clients",
			Column:      "bank_account_number",
			Sensitivity: SensitivityCritical,
			MaskPattern: "****{last4}",
			Description: "Client disbursement bank account",
		},
		{
			Table:       "clients",
			Column:      "phone",
			Sensitivity: SensitivityMedium,
			MaskPattern: "{first3}****{last2}",
			Description: "Client contact phone number",
		},
		{
			Table:       "users",
			Column:      "mfa_secret",
			Sensitivity: SensitivityCritical,
			Description: "TOTP seed for multi-factor authentication",
		},
		{
			Table:       "users",
			Column:      "api_key_hash",
			Sensitivity: SensitivityHigh,
			Description: "Hashed API key for programmatic access",
		},
		{
			Table:       "loans",
			Column:      "disbursement_account",
			Sensitivity: SensitivityHigh,
			MaskPattern: "****{last4}",
			Description: "Account the loan principal is disbursed to",
		},
		{
			Table:       "payments",
			Column:      "payer_account",
			Sensitivity: SensitivityHigh,
			MaskPattern: "****{last4}",
			Description: "Account a repayment was drawn from",
		},
	}

	relations := []Relation{
		{Table: "clients", Key: "loans", RelatedTable: "loans"},
		{Table: "loans", Key: "payments", RelatedTable: "payments"},
		{Table: "loans", Key: "client", RelatedTable: "clients"},
		{Table: "payments", Key: "loan", RelatedTable: "loans"},
	}

	r, err := New(configs, relations)
	if err != nil {
		// The default registry is static; a compile failure is a programming error.
		panic(err)
	}
	return r
}
