package configuration

import "fmt"

var defaultLinkedInScopes = []string{"openid", "profile", "email", "w_member_social"}

// GetLinkedInConfig returns the LinkedIn OAuth client with environment
// overrides and local defaults applied.
func GetLinkedInConfig() OAuthClient {
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 10001
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/linkedin/callback", scheme, port)

	li := C.OAuth.LinkedIn
	cfg := OAuthClient{
		ClientID:     getConfigValue(li.ClientID, "LINKEDIN_CLIENT_ID", ""),
		ClientSecret: getConfigValue(li.ClientSecret, "LINKEDIN_CLIENT_SECRET", ""),
		RedirectURI:  getConfigValue(li.RedirectURI, "LINKEDIN_REDIRECT_URI", defaultRedirect),
		AuthURL:      getConfigValue(li.AuthURL, "LINKEDIN_AUTH_URL", "https://www.linkedin.com/oauth/v2"),
		APIURL:       getConfigValue(li.APIURL, "LINKEDIN_API_URL", "https://api.linkedin.com"),
		Scopes:       li.Scopes,
		RateLimit:    li.RateLimit,
		Burst:        li.Burst,
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaultLinkedInScopes
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return cfg
}
