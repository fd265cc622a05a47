package thinq

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenValidity is assumed when the token endpoint omits expires_in.
const DefaultTokenValidity = 3600 * time.Second

// tokenExpiryLimit is the window before expiry in which a token is treated
// as already expired.
const tokenExpiryLimit = 60 * time.Second

// Auth carries the OAuth state for one account. Refresh returns a new Auth
// rather than mutating the receiver, so an Auth can be shared read-only.
type Auth struct {
	RefreshToken  string
	OAuthURL      string
	AccessToken   string
	TokenValidity time.Duration
	UserNumber    string

	gateway   *Gateway
	createdOn time.Time
}

// NewAuth creates an Auth from a refresh token. The access token is fetched
// on the first Refresh.
func NewAuth(gateway *Gateway, refreshToken, oauthURL string) *Auth {
	return &Auth{
		RefreshToken:  refreshToken,
		OAuthURL:      oauthURL,
		TokenValidity: DefaultTokenValidity,
		gateway:       gateway,
	}
}

// Gateway returns the gateway this Auth was created against.
func (a *Auth) Gateway() *Gateway { return a.gateway }

// RefreshGateway swaps in a freshly discovered gateway.
func (a *Auth) RefreshGateway(gateway *Gateway) { a.gateway = gateway }

// StartSession returns a request handle bound to this Auth.
func (a *Auth) StartSession() *Session {
	return &Session{auth: a}
}

func (a *Auth) expired(now time.Time) bool {
	if a.AccessToken == "" {
		return true
	}
	return a.TokenValidity-now.Sub(a.createdOn) <= tokenExpiryLimit
}

// Refresh returns an Auth holding a valid access token, requesting a new one
// when forced or when the current token is within a minute of expiry. The
// user number is fetched lazily on first need.
func (a *Auth) Refresh(ctx context.Context, force bool) (*Auth, error) {
	t := a.gateway.Transport()

	oauthURL := a.OAuthURL
	if oauthURL == "" {
		var err error
		if oauthURL, err = t.legacyOAuthURL(ctx); err != nil {
			return nil, err
		}
		a.OAuthURL = oauthURL
	}

	accessToken := a.AccessToken
	validity := a.TokenValidity
	renewed := force || a.expired(t.now())
	if renewed {
		t.log.Debug("requesting new access token")
		var err error
		accessToken, validity, err = t.refreshAuth(ctx, oauthURL, a.RefreshToken)
		if err != nil {
			refreshFailureTotal.Inc()
			tokenValid.Set(0)
			return nil, err
		}
		refreshSuccessTotal.Inc()
		tokenValid.Set(1)
	}

	userNumber := a.UserNumber
	if userNumber == "" {
		var err error
		if userNumber, err = t.userNumber(ctx, oauthURL, accessToken); err != nil {
			return nil, err
		}
		a.UserNumber = userNumber
	}

	if !renewed {
		return a, nil
	}
	return &Auth{
		RefreshToken:  a.RefreshToken,
		OAuthURL:      oauthURL,
		AccessToken:   accessToken,
		TokenValidity: validity,
		UserNumber:    userNumber,
		gateway:       a.gateway,
		createdOn:     t.now(),
	}, nil
}

// Dump serializes the Auth state for persistence.
func (a *Auth) Dump() map[string]any {
	return map[string]any{
		"refresh_token": a.RefreshToken,
		"oauth_url":     a.OAuthURL,
		"access_token":  a.AccessToken,
		"expires_in":    int(a.TokenValidity / time.Second),
		"user_number":   a.UserNumber,
	}
}

// LoadAuth rebuilds an Auth from a Dump blob. The access token is considered
// stale and will be renewed on the first Refresh.
func LoadAuth(gateway *Gateway, data map[string]any) *Auth {
	auth := NewAuth(gateway, stringify(data["refresh_token"]), stringify(data["oauth_url"]))
	auth.UserNumber = stringify(data["user_number"])
	return auth
}

// OAuthInfo is the credential material extracted from an OAuth callback URL.
type OAuthInfo struct {
	OAuthURL      string
	AccessToken   string
	RefreshToken  string
	TokenValidity time.Duration
	UserNumber    string
	AuthCode      string
}

// ParseOAuthCallback extracts credentials from the URL an OAuth login
// redirected to. Returns an error when the URL carries neither a token nor
// an auth code.
func ParseOAuthCallback(rawURL string) (*OAuthInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("thinq: parsing callback url: %w", err)
	}
	q := u.Query()
	info := &OAuthInfo{OAuthURL: q.Get("oauth2_backend_url")}
	switch {
	case q.Get("refresh_token") != "":
		info.RefreshToken = q.Get("refresh_token")
		info.AccessToken = q.Get("access_token")
		info.TokenValidity = DefaultTokenValidity
	case q.Get("code") != "":
		info.AuthCode = q.Get("code")
		info.UserNumber = q.Get("user_number")
	default:
		return nil, errors.New("thinq: callback url carries no credentials")
	}
	return info, nil
}

// AuthFromURL creates an Auth from an OAuth callback URL, exchanging the
// auth code for tokens when needed.
func AuthFromURL(ctx context.Context, gateway *Gateway, rawURL string) (*Auth, error) {
	info, err := ParseOAuthCallback(rawURL)
	if err != nil {
		return nil, err
	}
	t := gateway.Transport()
	if info.AuthCode != "" {
		access, validity, refresh, err := t.authCodeLogin(ctx, info.OAuthURL, info.AuthCode)
		if err != nil {
			return nil, err
		}
		info.AccessToken = access
		info.RefreshToken = refresh
		info.TokenValidity = validity
	}
	auth := NewAuth(gateway, info.RefreshToken, info.OAuthURL)
	auth.AccessToken = info.AccessToken
	auth.TokenValidity = info.TokenValidity
	auth.UserNumber = info.UserNumber
	auth.createdOn = t.now()
	return auth, nil
}

// AuthFromUserLogin performs the full EMP username/password login.
func AuthFromUserLogin(ctx context.Context, gateway *Gateway, username, password string) (*Auth, error) {
	hashed := sha512.Sum512([]byte(password))
	token, err := gateway.Transport().authUserLogin(
		ctx, gateway.LoginBaseURI, gateway.EmpTermsURI, username, hex.EncodeToString(hashed[:]))
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) || errors.Is(err, ErrToken) {
			return nil, err
		}
		return nil, &AuthenticationError{Message: fmt.Sprintf("user login failed: %v", err)}
	}

	oauthURL := stringify(token["oauth2_backend_url"])
	auth := NewAuth(gateway, stringify(token["refresh_token"]), oauthURL)
	auth.AccessToken = stringify(token["access_token"])
	auth.TokenValidity = parseValidity(token["expires_in"])
	auth.createdOn = gateway.Transport().now()
	userNumber, err := gateway.Transport().userNumber(ctx, oauthURL, auth.AccessToken)
	if err != nil {
		return nil, err
	}
	auth.UserNumber = userNumber
	return auth, nil
}

func parseValidity(v any) time.Duration {
	secs := 0
	switch n := v.(type) {
	case float64:
		secs = int(n)
	case string:
		fmt.Sscanf(n, "%d", &secs)
	}
	if secs <= 0 {
		return DefaultTokenValidity
	}
	return time.Duration(secs) * time.Second
}

// signingRoundTripper signs token-endpoint requests: the HMAC-SHA1 of
// "{path}?{form-body}\n{timestamp}" with the static OAuth secret, carried in
// the x-lge-oauth headers.
type signingRoundTripper struct {
	base http.RoundTripper
	now  func() time.Time
}

func (s *signingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	body := ""
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		body = string(b)
	}
	timestamp := s.now().UTC().Format(signatureTimeFormat)
	message := fmt.Sprintf("%s?%s\n%s", req.URL.Path, body, timestamp)

	req = req.Clone(req.Context())
	req.Header.Set("x-lge-appkey", clientID)
	req.Header.Set("x-lge-oauth-signature", signature(message, oauthSecretKey))
	req.Header.Set("x-lge-oauth-date", timestamp)
	req.Header.Set("Accept", "application/json")

	base := s.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// oauthConfig builds the token-grant configuration for the account's OAuth
// backend. The empty client ID keeps client credentials out of the form; the
// backend authenticates requests by signature instead.
func (t *Transport) oauthConfig(oauthURL string) *oauth2.Config {
	return &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  joinURL(oauthURL, v2AuthPath),
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: oauthRedirectURI,
	}
}

func (t *Transport) oauthContext(ctx context.Context) context.Context {
	client := &http.Client{
		Transport: &signingRoundTripper{base: t.httpClient.Transport, now: t.now},
		Timeout:   t.httpClient.Timeout,
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// authCodeLogin exchanges an authorization code for tokens.
func (t *Transport) authCodeLogin(ctx context.Context, oauthURL, authCode string) (access string, validity time.Duration, refresh string, err error) {
	cfg := t.oauthConfig(oauthURL)
	token, err := cfg.Exchange(t.oauthContext(ctx), authCode)
	if err != nil {
		return "", 0, "", tokenGrantError(err)
	}
	return token.AccessToken, tokenValidity(token, t.now()), token.RefreshToken, nil
}

// refreshAuth obtains a new access token from a refresh token.
func (t *Transport) refreshAuth(ctx context.Context, oauthURL, refreshToken string) (string, time.Duration, error) {
	cfg := t.oauthConfig(oauthURL)
	source := cfg.TokenSource(t.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return "", 0, tokenGrantError(err)
	}
	return token.AccessToken, tokenValidity(token, t.now()), nil
}

func tokenValidity(token *oauth2.Token, now time.Time) time.Duration {
	if token.Expiry.IsZero() {
		return DefaultTokenValidity
	}
	validity := token.Expiry.Sub(now)
	if validity <= 0 {
		return DefaultTokenValidity
	}
	return validity
}

func tokenGrantError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: status %d", ErrToken, retrieveErr.Response.StatusCode)
	}
	return fmt.Errorf("thinq: token grant: %w", err)
}

// userNumber fetches the account's user number via the signed profile
// endpoint.
func (t *Transport) userNumber(ctx context.Context, oauthURL, accessToken string) (string, error) {
	timestamp := t.timestamp()
	sig := signature(v2UserInfoPath+"\n"+timestamp, oauthSecretKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(oauthURL, v2UserInfoPath), nil)
	if err != nil {
		return "", fmt.Errorf("thinq: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Lge-Svccode", svcCode)
	req.Header.Set("X-Application-Key", applicationKey)
	req.Header.Set("lgemp-x-app-key", clientID)
	req.Header.Set("X-Device-Type", "M01")
	req.Header.Set("X-Device-Platform", "ADR")
	req.Header.Set("x-lge-oauth-date", timestamp)
	req.Header.Set("x-lge-oauth-signature", sig)

	out, _, err := t.do(req)
	if err != nil {
		return "", err
	}
	status, _ := out["status"].(float64)
	account, ok := out["account"].(map[string]any)
	if status != 1 || !ok {
		t.log.WithField("status", status).Error("invalid user profile response")
		return "", &AuthenticationError{Message: "failed to retrieve user number"}
	}
	return stringify(account["userNo"]), nil
}

// legacyOAuthURL discovers the OAuth backend via the v1 gateway list, used
// when a persisted Auth predates the URL being stored.
func (t *Transport) legacyOAuthURL(ctx context.Context) (string, error) {
	body := map[string]any{"countryCode": t.country, "langCode": t.language}
	out, err := t.LGEDMPost(ctx, gatewayV1URL, body, "", "", false)
	if err != nil {
		return "", fmt.Errorf("thinq: fetching oauth url: %w", err)
	}
	return stringify(out["oauthUri"]), nil
}

// authUserLogin walks the EMP login flow: preLogin, account session, dynamic
// secret lookup, then the signed EMP session token exchange.
func (t *Transport) authUserLogin(ctx context.Context, loginBase, empBase, username, encryptedPwd string) (map[string]any, error) {
	headers := map[string]string{
		"Accept":                      "application/json",
		"X-Application-Key":           applicationKey,
		"X-Client-App-Key":            clientID,
		"X-Lge-Svccode":               "SVC709",
		"X-Device-Type":               "M01",
		"X-Device-Platform":           "ADR",
		"X-Device-Language-Type":      "IETF",
		"X-Device-Publish-Flag":       "Y",
		"X-Device-Country":            t.country,
		"X-Device-Language":           t.language,
		"Access-Control-Allow-Origin": "*",
		"Accept-Language":             "en-US,en;q=0.9",
	}

	preLoginForm := url.Values{}
	preLoginForm.Set("user_auth2", encryptedPwd)
	preLoginForm.Set("log_param", fmt.Sprintf(
		"login request / user_id : %s / third_party : null / svc_list : SVC202,SVC710 / 3rd_service : ", username))
	preLogin, _, err := t.postForm(ctx, joinURL(loginBase, "preLogin"), preLoginForm, headers)
	if err != nil {
		return nil, fmt.Errorf("thinq: pre-login: %w", err)
	}
	headers["X-Signature"] = stringify(preLogin["signature"])
	headers["X-Timestamp"] = stringify(preLogin["tStamp"])

	loginForm := url.Values{}
	loginForm.Set("user_auth2", stringify(preLogin["encrypted_pw"]))
	loginForm.Set("password_hash_prameter_flag", "Y")
	loginForm.Set("svc_list", "SVC202,SVC710")
	sessionURL := joinURL(empBase, "emp/v2.0/account/session/"+url.QueryEscape(username))
	accountData, _, err := t.postForm(ctx, sessionURL, loginForm, headers)
	if err != nil {
		return nil, fmt.Errorf("thinq: account session: %w", err)
	}
	account, ok := accountData["account"].(map[string]any)
	if !ok {
		return nil, &AuthenticationError{Message: loginErrorMessage(accountData)}
	}

	secretURL := joinURL(loginBase, "searchKey?key_name=OAUTH_SECRETKEY&sever_type=OP")
	secretBody, err := t.GetBytes(ctx, secretURL)
	if err != nil {
		return nil, fmt.Errorf("thinq: fetching emp secret: %w", err)
	}
	secretData, err := decodeResponse(secretBody)
	if err != nil {
		return nil, err
	}
	secretKey := stringify(secretData["returnData"])

	empForm := url.Values{}
	empForm.Set("account_type", stringify(account["userIDType"]))
	empForm.Set("client_id", clientID)
	empForm.Set("country_code", stringify(account["country"]))
	empForm.Set("username", stringify(account["userID"]))

	sessURL, err := url.Parse(v2EmpSessionURL)
	if err != nil {
		return nil, fmt.Errorf("thinq: parsing emp session url: %w", err)
	}
	timestamp := t.timestamp()
	message := fmt.Sprintf("%s?%s\n%s", sessURL.Path, empForm.Encode(), timestamp)
	empHeaders := map[string]string{
		"lgemp-x-app-key":             oauthClientKey,
		"lgemp-x-date":                timestamp,
		"lgemp-x-session-key":         stringify(account["loginSessionID"]),
		"lgemp-x-signature":           signature(message, secretKey),
		"Accept":                      "application/json",
		"X-Device-Type":               "M01",
		"X-Device-Platform":           "ADR",
		"Access-Control-Allow-Origin": "*",
		"Accept-Language":             "en-US,en;q=0.9",
	}
	tokenData, _, err := t.postForm(ctx, v2EmpSessionURL, empForm, empHeaders)
	if err != nil {
		return nil, fmt.Errorf("thinq: emp session token: %w", err)
	}
	if status, _ := tokenData["status"].(float64); status != 1 {
		return nil, ErrToken
	}
	return tokenData, nil
}

func loginErrorMessage(accountData map[string]any) string {
	loginErr, ok := accountData["error"].(map[string]any)
	if !ok {
		return "unknown error"
	}
	msg := ""
	if code := stringify(loginErr["code"]); code != "" {
		msg = "code: " + code
	}
	if errMsg := stringify(loginErr["message"]); errMsg != "" {
		if msg != "" {
			msg += " - "
		}
		msg += "message: " + errMsg
	}
	if msg == "" {
		return "unknown error"
	}
	return msg
}
