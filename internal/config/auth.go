package config

import "github.com/goccy/go-yaml"

type Auth struct {
	Users          []User                  `yaml:"users"`
	ProxyHeader    InterpolatedString      `yaml:"proxyHeader"`
	TrustedProxies InterpolatedStringSlice `yaml:"trustedProxies"`
}

// User is an account allowed to call the API. Its permissions are decided by
// the ACL itself.
type User struct {
	Name         InterpolatedString `yaml:"name"`
	PasswordHash InterpolatedString `yaml:"passwordHash"`
}

func NewDefaultAuthConfig() Auth {
	return Auth{
		Users: []User{
			{
				Name:         "${BURPACL_ADMIN_USERNAME:-admin}",
				PasswordHash: "${BURPACL_ADMIN_PASSWORD_HASH}",
			},
		},
		ProxyHeader:    "${BURPACL_AUTH_PROXY_HEADER}",
		TrustedProxies: InterpolatedStringSlice{"127.0.0.1", "::1"},
	}
}

func NewAuthConfigCommentMap() yaml.CommentMap {
	return yaml.CommentMap{
		"":                       []*yaml.Comment{yaml.HeadComment(" API authentication")},
		".users":                 []*yaml.Comment{yaml.HeadComment(" Users allowed to authenticate with HTTP basic auth")},
		".users[0].name":         []*yaml.Comment{yaml.HeadComment(" User's name, as referenced in ACL grants")},
		".proxyHeader":           []*yaml.Comment{yaml.HeadComment(" Header carrying the username set by a reverse proxy, disabled if empty")},
		".trustedProxies":        []*yaml.Comment{yaml.HeadComment(" Addresses or CIDR ranges allowed to set the proxy header")},
		".users[0].passwordHash": []*yaml.Comment{yaml.HeadComment(" Bcrypt hash of the user's password", " Generate one with 'htpasswd -nbBC 10 \"\" <password> | tr -d :'")},
	}
}
