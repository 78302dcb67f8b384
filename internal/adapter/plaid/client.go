package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/usecase"
)

// Client implements usecase.AggregatorClient against a Plaid-style HTTP
// API. Every operation uses an explicitly typed request/response pair;
// amounts are parsed as decimals and rejected unless they land on a
// whole cent.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
}

// NewClient creates a new aggregator client.
func NewClient(baseURL, clientID, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type exchangeRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

type balanceRequest struct {
	ClientID    string         `json:"client_id"`
	Secret      string         `json:"secret"`
	AccessToken string         `json:"access_token"`
	Options     balanceOptions `json:"options"`
}

type balanceOptions struct {
	AccountIDs []string `json:"account_ids"`
}

type balanceResponse struct {
	Accounts []struct {
		AccountID string `json:"account_id"`
		Balances  struct {
			Current decimal.Decimal `json:"current"`
		} `json:"balances"`
	} `json:"accounts"`
}

type syncRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
	Count       int    `json:"count"`
}

type wireTransaction struct {
	TransactionID        string          `json:"transaction_id"`
	PendingTransactionID string          `json:"pending_transaction_id"`
	AccountID            string          `json:"account_id"`
	Date                 string          `json:"date"`
	AuthorizedDate       string          `json:"authorized_date"`
	Amount               decimal.Decimal `json:"amount"`
	Name                 string          `json:"name"`
	Pending              bool            `json:"pending"`
}

type wireRemoved struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
}

type syncResponse struct {
	Added      []wireTransaction `json:"added"`
	Modified   []wireTransaction `json:"modified"`
	Removed    []wireRemoved     `json:"removed"`
	NextCursor string            `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

type apiError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("aggregator error %s/%s: %s", e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

// ExchangePublicToken trades a link-flow public token for a durable item
// access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	var resp exchangeResponse
	err := c.post(ctx, "/item/public_token/exchange", exchangeRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		PublicToken: publicToken,
	}, &resp)
	if err != nil {
		return "", "", err
	}
	return resp.ItemID, resp.AccessToken, nil
}

// GetBalance fetches the current balance for one account of an item, in
// cents.
func (c *Client) GetBalance(ctx context.Context, accessToken, aggregatorAccountID string) (int64, error) {
	var resp balanceResponse
	err := c.post(ctx, "/accounts/balance/get", balanceRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
		Options:     balanceOptions{AccountIDs: []string{aggregatorAccountID}},
	}, &resp)
	if err != nil {
		return 0, err
	}
	for _, acct := range resp.Accounts {
		if acct.AccountID == aggregatorAccountID {
			return domain.CentsFromDecimal(acct.Balances.Current)
		}
	}
	return 0, fmt.Errorf("account %s not present in balance response", aggregatorAccountID)
}

// SyncPage pulls one page of transaction deltas from the given cursor.
// Records for other accounts of the same item are filtered out.
func (c *Client) SyncPage(ctx context.Context, accessToken, aggregatorAccountID, cursor string) (*usecase.SyncPageResult, error) {
	var resp syncResponse
	err := c.post(ctx, "/transactions/sync", syncRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
		Cursor:      cursor,
		Count:       250,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := &usecase.SyncPageResult{
		NextCursor: resp.NextCursor,
		HasMore:    resp.HasMore,
	}
	for _, wt := range resp.Added {
		if wt.AccountID != aggregatorAccountID {
			continue
		}
		rec, err := convertTransaction(wt)
		if err != nil {
			return nil, err
		}
		result.Added = append(result.Added, rec)
	}
	for _, wt := range resp.Modified {
		if wt.AccountID != aggregatorAccountID {
			continue
		}
		rec, err := convertTransaction(wt)
		if err != nil {
			return nil, err
		}
		result.Modified = append(result.Modified, rec)
	}
	for _, wr := range resp.Removed {
		if wr.AccountID != aggregatorAccountID {
			continue
		}
		result.Removed = append(result.Removed, wr.TransactionID)
	}
	return result, nil
}

const dateLayout = "2006-01-02"

func convertTransaction(wt wireTransaction) (usecase.AggregatorTransaction, error) {
	cents, err := domain.CentsFromDecimal(wt.Amount)
	if err != nil {
		return usecase.AggregatorTransaction{}, fmt.Errorf("transaction %s: %w", wt.TransactionID, err)
	}
	posted, err := time.Parse(dateLayout, wt.Date)
	if err != nil {
		return usecase.AggregatorTransaction{}, fmt.Errorf("transaction %s: parse date: %w", wt.TransactionID, err)
	}
	rec := usecase.AggregatorTransaction{
		ExternalID:        wt.TransactionID,
		PendingExternalID: wt.PendingTransactionID,
		PostedDate:        posted,
		AmountCents:       cents,
		Name:              wt.Name,
		Pending:           wt.Pending,
	}
	if wt.AuthorizedDate != "" {
		authorized, err := time.Parse(dateLayout, wt.AuthorizedDate)
		if err != nil {
			return usecase.AggregatorTransaction{}, fmt.Errorf("transaction %s: parse authorized date: %w", wt.TransactionID, err)
		}
		rec.AuthorizedDate = &authorized
	}
	return rec, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.ErrorCode != "" {
			return &apiErr
		}
		return fmt.Errorf("call %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
