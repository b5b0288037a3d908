package entity

import (
	"context"
	"strings"
)

// NotFound substitui campos ausentes na comparação entre fontes.
const NotFound = "Not Found"

// Campos pedidos ao Zoho CRM, na ordem do parâmetro "fields".
var LeadFields = []string{
	"First_Name",
	"Last_Name",
	"Email",
	"Phone",
	"Company",
	"Industry",
	"Lead_Status",
}

// RequiredFields são os campos comparados campo a campo na reconciliação.
var RequiredFields = []string{"Last_Name", "First_Name", "Email", "Phone"}

// Lead é um registro do CRM ou do banco de documentos.
// Não existe schema: qualquer campo pode faltar e campos extras são preservados.
type Lead map[string]any

// Email devolve o campo Email quando ele é uma string, e "" caso contrário.
func (l Lead) Email() string {
	v, _ := l["Email"].(string)
	return v
}

func (l Lead) NormalizedEmail() string {
	return NormalizeEmail(l.Email())
}

// Field devolve o valor do campo ou NotFound quando ele não existe.
func (l Lead) Field(name string) any {
	v, ok := l[name]
	if !ok {
		return NotFound
	}
	return v
}

// NormalizeEmail aplica trim + lower-case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type LeadRepositoryInterface interface {
	// FindAll lê a coleção inteira, sem _id.
	FindAll(ctx context.Context) ([]Lead, error)
	InsertMany(ctx context.Context, leads []Lead) error
}
