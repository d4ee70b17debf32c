package httputil

import (
	"bytes"
	"encoding/json"
	"strings"

	vaultSvc "snipvault/internal/domain/services/vault"
)

// OptionalID decodes a nullable reference in a PATCH body (parent_id,
// collection_id). An absent key leaves the reference alone; null or a blank
// string clears it (top level / unfiled); anything else points at that id.
type OptionalID struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only called when the key is present in the body
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Present = true
	o.Value = nil

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id = strings.TrimSpace(id); id != "" {
		o.Value = &id
	}
	return nil
}

// Service converts the decoded field to the service layer's tri-state
func (o OptionalID) Service() vaultSvc.OptionalID {
	return vaultSvc.OptionalID{Present: o.Present, Value: o.Value}
}
