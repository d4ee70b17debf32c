package vault

// OptionalID tracks tri-state semantics for nullable references in PATCH requests.
// This is transport-agnostic (no JSON tags) - handlers map from httputil.OptionalID.
//   - Present=false: field absent from request (don't change)
//   - Present=true, Value=nil: field is null (move to top level / unfile)
//   - Present=true, Value=&"id": move under id
type OptionalID struct {
	Present bool
	Value   *string
}

// Set builds a present OptionalID
func Set(value *string) OptionalID {
	return OptionalID{Present: true, Value: value}
}
