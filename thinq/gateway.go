package thinq

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Gateway holds the regional API hosts discovered from the route service.
type Gateway struct {
	EmpBaseURI   string
	EmpTermsURI  string
	LoginBaseURI string
	ThinQ1URI    string
	ThinQ2URI    string

	transport *Transport
}

// DiscoverGateway queries the route service for the regional hosts.
func DiscoverGateway(ctx context.Context, t *Transport) (*Gateway, error) {
	info, err := t.ThinQ2Get(ctx, v2GatewayURL, "", "", nil)
	if err != nil {
		return nil, fmt.Errorf("discovering gateway: %w", err)
	}
	return newGateway(info, t), nil
}

func newGateway(info map[string]any, t *Transport) *Gateway {
	return &Gateway{
		EmpBaseURI:   addEndSlash(stringify(info["empUri"])),
		EmpTermsURI:  addEndSlash(stringify(info["empTermsUri"])),
		LoginBaseURI: addEndSlash(stringify(info["empSpxUri"])),
		ThinQ1URI:    addEndSlash(stringify(info["thinq1Uri"])),
		ThinQ2URI:    addEndSlash(stringify(info["thinq2Uri"])),
		transport:    t,
	}
}

// Transport returns the API transport behind this gateway.
func (g *Gateway) Transport() *Transport { return g.transport }

// Country returns the transport's country code.
func (g *Gateway) Country() string { return g.transport.Country() }

// Language returns the transport's language code.
func (g *Gateway) Language() string { return g.transport.Language() }

// OAuthURL builds the browser login URL. state defends against replay; when
// empty a fresh random state is generated.
func (g *Gateway) OAuthURL(redirectURI, state string) string {
	if state == "" {
		state = strings.ReplaceAll(genUUID(), "-", "")
	}
	q := url.Values{}
	q.Set("country", g.Country())
	q.Set("language", g.Language())
	q.Set("client_id", clientID)
	q.Set("svc_list", svcCode)
	q.Set("svc_integrated", "Y")
	q.Set("show_thirdparty_login", "LGE,MYLG,GGL,AMZ,FBK,APPL")
	q.Set("division", "ha:T20")
	q.Set("oauth2State", state)
	q.Set("show_select_country", "N")
	if redirectURI != "" {
		q.Set("redirect_uri", redirectURI)
	}
	return joinURL(g.LoginBaseURI, "login/signIn") + "?" + q.Encode()
}

// Dump serializes the gateway for persistence alongside the auth state.
func (g *Gateway) Dump() map[string]any {
	return map[string]any{
		"empUri":      g.EmpBaseURI,
		"empTermsUri": g.EmpTermsURI,
		"empSpxUri":   g.LoginBaseURI,
		"thinq1Uri":   g.ThinQ1URI,
		"thinq2Uri":   g.ThinQ2URI,
		"country":     g.Country(),
		"language":    g.Language(),
	}
}

// LoadGateway rebuilds a gateway from a Dump blob.
func LoadGateway(data map[string]any, t *Transport) *Gateway {
	return newGateway(data, t)
}
