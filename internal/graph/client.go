// Package graph is a thin authenticated client for the Microsoft Graph
// endpoints the tool consumes: the signed-in profile, directory roles,
// user search and resolution, group memberships and member management.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/entraops/entracopy/internal/core/domain"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// OData type discriminators on /memberOf results.
const (
	odataTypeDirectoryRole = "#microsoft.graph.directoryRole"
	odataTypeGroup         = "#microsoft.graph.group"
)

// Client issues authenticated requests against Microsoft Graph. The
// access token is supplied per call; the client never refreshes it.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *RateLimiter
}

// NewClient creates a Graph client with a 30 second timeout and the
// default rate limit.
func NewClient() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    NewRateLimiter(),
	}
}

// Me fetches the profile of the principal the token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*domain.Identity, error) {
	var identity domain.Identity
	u := c.BaseURL + "/me?$select=id,displayName,mail,userPrincipalName"
	if err := c.getJSON(ctx, accessToken, u, &identity); err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return &identity, nil
}

// MyDirectoryRoles lists the directory-role memberships of the current
// principal, following pagination.
func (c *Client) MyDirectoryRoles(ctx context.Context, accessToken string) ([]domain.DirectoryRole, error) {
	var roles []domain.DirectoryRole
	next := c.BaseURL + "/me/memberOf"
	for next != "" {
		var page memberOfPage
		if err := c.getJSON(ctx, accessToken, next, &page); err != nil {
			return nil, fmt.Errorf("fetch directory roles: %w", err)
		}
		for _, entry := range page.Value {
			if entry.ODataType != odataTypeDirectoryRole {
				continue
			}
			roles = append(roles, domain.DirectoryRole{
				ID:             entry.ID,
				DisplayName:    entry.DisplayName,
				RoleTemplateID: entry.RoleTemplateID,
			})
		}
		next = page.NextLink
	}
	return roles, nil
}

// SearchUsers returns up to ten users whose display name or principal
// name starts with prefix.
func (c *Client) SearchUsers(ctx context.Context, accessToken, prefix string) ([]domain.User, error) {
	// Single quotes in OData string literals are escaped by doubling.
	quoted := strings.ReplaceAll(prefix, "'", "''")
	filter := fmt.Sprintf("startswith(displayName,'%s') or startswith(userPrincipalName,'%s')", quoted, quoted)

	params := url.Values{}
	params.Set("$filter", filter)
	params.Set("$top", strconv.Itoa(10))
	params.Set("$select", "id,displayName,userPrincipalName,mail")

	var page struct {
		Value []domain.User `json:"value"`
	}
	if err := c.getJSON(ctx, accessToken, c.BaseURL+"/users?"+params.Encode(), &page); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return page.Value, nil
}

// UserByPrincipalName resolves a user principal name to its directory
// object.
func (c *Client) UserByPrincipalName(ctx context.Context, accessToken, upn string) (*domain.User, error) {
	var user domain.User
	u := c.BaseURL + "/users/" + url.PathEscape(upn) + "?$select=id,displayName,userPrincipalName,mail"
	if err := c.getJSON(ctx, accessToken, u, &user); err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", upn, err)
	}
	return &user, nil
}

// UserGroups lists the user's group memberships with the properties the
// manageable-group filter needs, following pagination.
func (c *Client) UserGroups(ctx context.Context, accessToken, userID string) ([]domain.Group, error) {
	params := url.Values{}
	params.Set("$select", "id,displayName,groupTypes,mailEnabled,securityEnabled,membershipRule,membershipRuleProcessingState")

	var groups []domain.Group
	next := c.BaseURL + "/users/" + url.PathEscape(userID) + "/memberOf?" + params.Encode()
	for next != "" {
		var page memberOfPage
		if err := c.getJSON(ctx, accessToken, next, &page); err != nil {
			return nil, fmt.Errorf("fetch groups: %w", err)
		}
		for _, entry := range page.Value {
			if entry.ODataType != odataTypeGroup {
				continue
			}
			groups = append(groups, domain.Group{
				ID:                            entry.ID,
				DisplayName:                   entry.DisplayName,
				GroupTypes:                    entry.GroupTypes,
				MailEnabled:                   entry.MailEnabled,
				SecurityEnabled:               entry.SecurityEnabled,
				MembershipRule:                entry.MembershipRule,
				MembershipRuleProcessingState: entry.MembershipRuleProcessingState,
			})
		}
		next = page.NextLink
	}
	return groups, nil
}

// IsMember probes whether the user is already a member of the group.
// Any failure, including network errors, reads as "not a member"; the
// worst case is a duplicate-add attempt, never an incorrect skip.
func (c *Client) IsMember(ctx context.Context, accessToken, groupID, userID string) bool {
	u := c.BaseURL + "/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(userID) + "?$select=id"
	resp, err := c.do(ctx, accessToken, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// AddMember adds the user as a member reference of the group.
func (c *Client) AddMember(ctx context.Context, accessToken, groupID, userID string) error {
	payload := map[string]string{
		"@odata.id": c.BaseURL + "/directoryObjects/" + userID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode member reference: %w", err)
	}

	u := c.BaseURL + "/groups/" + url.PathEscape(groupID) + "/members/$ref"
	resp, err := c.do(ctx, accessToken, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("add member: %w", c.decodeAPIError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// memberOfPage is one page of a /memberOf listing. Entries carry an
// OData type discriminator; role and group fields are a superset.
type memberOfPage struct {
	NextLink string          `json:"@odata.nextLink"`
	Value    []memberOfEntry `json:"value"`
}

type memberOfEntry struct {
	ODataType                     string   `json:"@odata.type"`
	ID                            string   `json:"id"`
	DisplayName                   string   `json:"displayName"`
	RoleTemplateID                string   `json:"roleTemplateId"`
	GroupTypes                    []string `json:"groupTypes"`
	MailEnabled                   bool     `json:"mailEnabled"`
	SecurityEnabled               bool     `json:"securityEnabled"`
	MembershipRule                string   `json:"membershipRule"`
	MembershipRuleProcessingState string   `json:"membershipRuleProcessingState"`
}

func (c *Client) getJSON(ctx context.Context, accessToken, u string, into any) error {
	resp, err := c.do(ctx, accessToken, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, accessToken, method, u string, body io.Reader) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request: %w", err)
	}

	if IsRateLimited(resp.StatusCode) && c.Limiter != nil {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		c.Limiter.RecordRateLimitError(retryAfter)
	}
	return resp, nil
}

// decodeAPIError reads the Graph error envelope {"error":{"code","message"}}
// into an APIError. A body that fails to parse still yields the status.
func (c *Client) decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if body, err := io.ReadAll(resp.Body); err == nil {
		if err := json.Unmarshal(body, &envelope); err == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
	}
	return apiErr
}
