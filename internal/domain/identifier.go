package domain

// IDScope names the table an identifier must be unique within.
type IDScope string

const (
	IDScopeUsers   IDScope = "users"
	IDScopeLedger  IDScope = "ledger"
	IDScopeFreezes IDScope = "freezes"
)
