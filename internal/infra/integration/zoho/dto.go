package zoho

import (
	"fmt"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error,omitempty"`
}

// leadsResponse é o envelope do GET /v2/Leads.
// Data é nil quando a resposta não traz o campo (204, erro, fim da paginação).
type leadsResponse struct {
	Data []entity.Lead `json:"data"`
	Info *pageInfo     `json:"info,omitempty"`
}

type pageInfo struct {
	PerPage     int  `json:"per_page"`
	Count       int  `json:"count"`
	Page        int  `json:"page"`
	MoreRecords bool `json:"more_records"`
}

// TokenRetrievalError é devolvido quando o endpoint de OAuth não entrega um token.
// Code é o campo "error" do Zoho (ex.: invalid_code), quando vier.
type TokenRetrievalError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *TokenRetrievalError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("failed to retrieve access token: status %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("failed to retrieve access token: status %d: %s", e.StatusCode, e.Body)
}
