// Package zoho fala com a API REST v2 do Zoho CRM: troca o refresh token por um
// access token e pagina o módulo Leads.
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/secrets"
)

const (
	DefaultPageSize   = 200
	DefaultRetryAfter = 60 * time.Second
)

// CredentialsProvider é satisfeito por *secrets.Resolver.
type CredentialsProvider interface {
	ZohoCredentials(ctx context.Context) (secrets.ZohoCredentials, error)
}

// Sleeper espera d ou até o contexto ser cancelado.
type Sleeper func(ctx context.Context, d time.Duration) error

type Client struct {
	httpClient  *http.Client
	apiURL      string
	accountsURL string
	credentials CredentialsProvider
	logger      *zap.Logger
	pageSize    int
	sleep       Sleeper
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithSleeper troca a espera do 429 (usado nos testes).
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

func NewClient(apiURL, accountsURL string, credentials CredentialsProvider, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiURL:      strings.TrimRight(apiURL, "/"),
		accountsURL: strings.TrimRight(accountsURL, "/"),
		credentials: credentials,
		logger:      logger,
		pageSize:    DefaultPageSize,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken troca o refresh token guardado no Secrets Manager por um access token.
// Uma tentativa só; status != 200 vira *TokenRetrievalError.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	creds, err := c.credentials.ZohoCredentials(ctx)
	if err != nil {
		return "", eris.Wrap(err, "failed to resolve zoho credentials")
	}

	q := url.Values{}
	q.Set("refresh_token", creds.RefreshToken)
	q.Set("client_id", creds.ClientID)
	q.Set("client_secret", creds.ClientSecret)
	q.Set("grant_type", "refresh_token")

	endpoint := c.accountsURL + "/oauth/v2/token?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", eris.Wrap(err, "failed to build token request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "failed to read token response")
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("zoho token request rejected", zap.Int("status", resp.StatusCode))
		return "", &TokenRetrievalError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrap(err, "failed to decode token response")
	}
	if out.AccessToken == "" {
		// O Zoho responde 200 com {"error": "invalid_code"} quando o refresh token expira.
		return "", &TokenRetrievalError{StatusCode: resp.StatusCode, Code: out.Error, Body: string(body)}
	}
	return out.AccessToken, nil
}

// FetchLeads pagina /v2/Leads a partir da página 1 até juntar maxRecords registros
// ou a API parar de devolver "data". 429 espera Retry-After e repete a mesma página.
func (c *Client) FetchLeads(ctx context.Context, maxRecords int) ([]entity.Lead, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	leads := make([]entity.Lead, 0)
	page := 1

	for len(leads) < maxRecords {
		resp, err := c.getPage(ctx, token, page)
		if err != nil {
			return nil, err
		}

		if resp.rateLimited {
			c.logger.Warn("zoho rate limit reached, waiting before retrying",
				zap.Int("page", page),
				zap.Duration("retry_after", resp.retryAfter),
			)
			if err := c.sleep(ctx, resp.retryAfter); err != nil {
				return nil, eris.Wrap(err, "interrupted while waiting for zoho rate limit")
			}
			continue
		}

		// página vazia também encerra, senão o loop não termina
		if len(resp.body.Data) == 0 {
			break
		}

		leads = append(leads, resp.body.Data...)
		c.logger.Debug("zoho page fetched", zap.Int("page", page), zap.Int("records", len(resp.body.Data)))
		page++

		if len(leads) >= maxRecords {
			leads = leads[:maxRecords]
			break
		}
		if resp.body.Info != nil && !resp.body.Info.MoreRecords {
			break
		}
	}

	return leads, nil
}

type pageResult struct {
	body        leadsResponse
	rateLimited bool
	retryAfter  time.Duration
}

func (c *Client) getPage(ctx context.Context, token string, page int) (pageResult, error) {
	q := url.Values{}
	q.Set("fields", strings.Join(entity.LeadFields, ","))
	q.Set("per_page", strconv.Itoa(c.pageSize))
	q.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/v2/Leads?"+q.Encode(), nil)
	if err != nil {
		return pageResult{}, eris.Wrap(err, "failed to build leads request")
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pageResult{}, eris.Wrapf(err, "leads request failed on page %d", page)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return pageResult{rateLimited: true, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pageResult{}, eris.Wrapf(err, "failed to read leads page %d", page)
	}

	var out leadsResponse
	if len(bytes.TrimSpace(raw)) == 0 {
		return pageResult{body: out}, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		// corpo que não é JSON conta como "sem data": encerra a paginação
		c.logger.Warn("unexpected leads response",
			zap.Int("page", page),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return pageResult{body: leadsResponse{}}, nil
	}
	return pageResult{body: out}, nil
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
