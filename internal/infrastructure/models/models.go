package models

// Owned lists the tables this service migrates. Read models are excluded.
func Owned() []interface{} {
	return []interface{}{
		&CommissionRule{},
		&Wallet{},
		&LedgerEntry{},
		&JobPayment{},
		&WithdrawalRequest{},
		&Settlement{},
	}
}
