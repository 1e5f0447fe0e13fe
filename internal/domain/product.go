package domain

import "strings"

// ProductRecord is one entry of the shared product database. The json tags
// keep the wire names of the legacy documents (codigo/nome/descricao/imagem)
// so files written by earlier versions remain readable.
type ProductRecord struct {
	Code        string `json:"codigo" form:"codigo"`
	Name        string `json:"nome" form:"nome"`
	Description string `json:"descricao,omitempty" form:"descricao"`
	ImagePath   string `json:"imagem,omitempty" form:"imagem"`
}

// Valid reports whether the record carries the required fields.
func (p ProductRecord) Valid() error {
	if strings.TrimSpace(p.Code) == "" {
		return &ValidationError{Field: "codigo", Reason: "product code is required"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "nome", Reason: "product name is required"}
	}
	return nil
}

// ProductDatabase is the admin-owned shared set of product records,
// persisted as a single ordered JSON array. Code uniqueness is maintained
// by the catalog engine upsert, not enforced here.
type ProductDatabase []ProductRecord
