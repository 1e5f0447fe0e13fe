// Package walink formats the pre-filled WhatsApp order links sent to the
// seller when a client submits a part selection.
package walink

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/svpecas/catalogd/internal/domain"
	"github.com/svpecas/catalogd/pkg/ids"
)

const waBase = "https://wa.me/"

// OrderItem is one selected line of an order request.
type OrderItem struct {
	Name     string `json:"nome"`
	Code     string `json:"codigo"`
	Quantity int    `json:"quantidade"`
}

// Validate rejects empty selections and non-positive quantities.
func Validate(items []OrderItem) error {
	if len(items) == 0 {
		return &domain.ValidationError{Field: "itens", Reason: "select at least one item"}
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return &domain.ValidationError{Field: "quantidade", Reason: fmt.Sprintf("quantity for %s must be at least 1", it.Code)}
		}
	}
	return nil
}

// BuildMessage renders the order summary in the exact template the sellers
// already receive, one line per selected item.
func BuildMessage(clientName string, items []OrderItem) string {
	var b strings.Builder
	b.WriteString("*Pedido de Reposição de Peças*\n")
	b.WriteString("Cliente: " + clientName + "\n\n")
	b.WriteString("*Itens Selecionados:*\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s (código %s) — Quantidade: %d\n", it.Name, it.Code, it.Quantity)
	}
	return b.String()
}

// BuildLink produces the wa.me URL with the summary percent-encoded exactly
// once. The contact is a phone-number-style identifier, digits only on the
// wire.
func BuildLink(sellerContact, clientName string, items []OrderItem) (string, error) {
	if strings.TrimSpace(sellerContact) == "" {
		return "", &domain.ValidationError{Field: "contato_vendedor", Reason: "seller contact is required"}
	}
	if err := Validate(items); err != nil {
		return "", err
	}
	msg := BuildMessage(clientName, items)
	return waBase + sanitizeContact(sellerContact) + "?text=" + url.QueryEscape(msg), nil
}

// NewOrderRef returns a reference id used to correlate an order request in
// the logs.
func NewOrderRef() string {
	return ids.Next()
}

func sanitizeContact(contact string) string {
	var b strings.Builder
	for _, r := range contact {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
