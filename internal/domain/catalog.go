package domain

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ItemRef is one entry of a client catalog's "pecas" list. Legacy documents
// store either a full embedded product record or a bare code string; both
// forms must round-trip.
type ItemRef struct {
	// Code is always set. For embedded items it mirrors Snapshot.Code.
	Code string
	// Snapshot holds the embedded record when the item was stored inline.
	Snapshot *ProductRecord
}

// CodeRef builds a bare code reference.
func CodeRef(code string) ItemRef {
	return ItemRef{Code: code}
}

// SnapshotRef builds an embedded snapshot reference.
func SnapshotRef(rec ProductRecord) ItemRef {
	return ItemRef{Code: rec.Code, Snapshot: &rec}
}

// Embedded reports whether the item carries an inline record.
func (r ItemRef) Embedded() bool {
	return r.Snapshot != nil
}

func (r ItemRef) MarshalJSON() ([]byte, error) {
	if r.Snapshot != nil {
		return json.Marshal(r.Snapshot)
	}
	return json.Marshal(r.Code)
}

func (r *ItemRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		var code string
		if err := json.Unmarshal(data, &code); err != nil {
			return errors.Wrap(err, "decode item code")
		}
		*r = ItemRef{Code: code}
		return nil
	}
	var rec ProductRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return errors.Wrap(err, "decode item record")
	}
	*r = ItemRef{Code: rec.Code, Snapshot: &rec}
	return nil
}

// ClientCatalog is one client's catalog document, keyed in storage by the
// normalized client name.
type ClientCatalog struct {
	ClientName    string    `json:"cliente"`
	SellerName    string    `json:"vendedor"`
	SellerContact string    `json:"contato_vendedor"`
	Items         []ItemRef `json:"pecas"`
}

// clientCatalogAlias mirrors ClientCatalog plus the legacy "contato" field
// some early documents used instead of "contato_vendedor".
type clientCatalogAlias struct {
	ClientName    string    `json:"cliente"`
	SellerName    string    `json:"vendedor"`
	SellerContact string    `json:"contato_vendedor"`
	LegacyContact string    `json:"contato"`
	Items         []ItemRef `json:"pecas"`
}

func (c *ClientCatalog) UnmarshalJSON(data []byte) error {
	var raw clientCatalogAlias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	contact := raw.SellerContact
	if contact == "" {
		contact = raw.LegacyContact
	}
	*c = ClientCatalog{
		ClientName:    raw.ClientName,
		SellerName:    raw.SellerName,
		SellerContact: contact,
		Items:         raw.Items,
	}
	return nil
}

// ResolvedItem is a catalog item after joining against the product database.
// Not persisted.
type ResolvedItem struct {
	ProductRecord
	// FromSnapshot marks items that came from an embedded snapshot rather
	// than the shared database.
	FromSnapshot bool `json:"from_snapshot,omitempty"`
}

// ClientKey derives the storage key for a client name: lowercase with
// spaces turned into underscores, the same rule the legacy files used.
func ClientKey(clientName string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(clientName), " ", "_"))
}
