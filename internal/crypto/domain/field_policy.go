package domain

// FieldPolicy describes how one PII field is protected.
//
// Normalization is shared verbatim between encryption and blind indexing for
// the same field: if the two ever diverge, stored tokens stop matching query
// tokens and equality search breaks silently. Searchable controls whether a
// blind-index token is computed at all.
type FieldPolicy struct {
	// Name identifies the field and is bound into key derivation, so two
	// fields never share encryption or index subkeys.
	Name string
	// CaseFold lower-cases the value before encryption and indexing.
	// Used for case-insensitive identifiers such as email addresses.
	CaseFold bool
	// Searchable computes a blind-index token so the field supports
	// exact-match lookup without decryption.
	Searchable bool
}

// Well-known claims-intake field policies.
var (
	// FieldEmail is the subject's email address: case-insensitive, searchable.
	FieldEmail = FieldPolicy{Name: "email", CaseFold: true, Searchable: true}

	// FieldFullName is a person's full name: case-preserving, searchable.
	FieldFullName = FieldPolicy{Name: "full_name", Searchable: true}

	// FieldPhone is a phone number: case-irrelevant, searchable.
	FieldPhone = FieldPolicy{Name: "phone", Searchable: true}

	// FieldAddress is a postal address: encrypted only, no exact-match search.
	FieldAddress = FieldPolicy{Name: "address"}
)

// fieldPolicies is the registry of known field policies by name.
var fieldPolicies = map[string]FieldPolicy{
	FieldEmail.Name:    FieldEmail,
	FieldFullName.Name: FieldFullName,
	FieldPhone.Name:    FieldPhone,
	FieldAddress.Name:  FieldAddress,
}

// FieldPolicyByName looks up a registered field policy. The second return
// value reports whether the field is known.
func FieldPolicyByName(name string) (FieldPolicy, bool) {
	policy, ok := fieldPolicies[name]
	return policy, ok
}
