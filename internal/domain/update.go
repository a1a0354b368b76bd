package domain

// FieldUpdate is a tagged edit to one transaction. The set of legal edits is
// the closed list of types below; nothing else can mutate a transaction that
// already lives inside a statement. Category edits made through SetCategory
// are always stamped as manual so rule reprocessing leaves them alone.
type FieldUpdate interface {
	apply(*Transaction)
}

// SetDate replaces the transaction date (ISO string).
type SetDate struct{ Value string }

// SetPostingDate replaces the optional posting date. A nil value clears it.
type SetPostingDate struct{ Value *string }

// SetDescription replaces the free-text description.
type SetDescription struct{ Value string }

// SetAmount replaces the magnitude. Negative input is clamped to zero; the
// sign belongs to the type field.
type SetAmount struct{ Value float64 }

// SetType flips the transaction between debit and credit.
type SetType struct{ Value TransactionType }

// SetBalance replaces the optional running balance. A nil value clears it.
type SetBalance struct{ Value *float64 }

// SetCategory is a manual category assignment by the user.
type SetCategory struct{ Name string }

func (u SetDate) apply(t *Transaction)        { t.Date = u.Value }
func (u SetPostingDate) apply(t *Transaction) { t.PostingDate = u.Value }
func (u SetDescription) apply(t *Transaction) { t.Description = u.Value }

func (u SetAmount) apply(t *Transaction) {
	v := u.Value
	if v < 0 {
		v = 0
	}
	t.Amount = v
}

func (u SetType) apply(t *Transaction)    { t.Type = u.Value }
func (u SetBalance) apply(t *Transaction) { t.Balance = u.Value }

func (u SetCategory) apply(t *Transaction) {
	t.Category = u.Name
	t.CategorySource = SourceManual
}
