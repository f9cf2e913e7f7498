package ldap

import (
	"context"
	"log/slog"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
)

const Type acl.Type = "ldap"

func init() {
	acl.Register(Type, CreateBackendFromOptions)
}

type Options struct {
	URL             string `mapstructure:"url" yaml:"url"`
	BindDN          string `mapstructure:"bindDN" yaml:"bindDN"`
	BindPassword    string `mapstructure:"bindPassword" yaml:"bindPassword"`
	BaseDN          string `mapstructure:"baseDN" yaml:"baseDN"`
	Filter          string `mapstructure:"filter" yaml:"filter"`
	GroupAttribute  string `mapstructure:"groupAttribute" yaml:"groupAttribute"`
	MemberAttribute string `mapstructure:"memberAttribute" yaml:"memberAttribute"`
	GrantAttribute  string `mapstructure:"grantAttribute" yaml:"grantAttribute"`
	AdminGroup      string `mapstructure:"adminGroup" yaml:"adminGroup"`
	ModeratorGroup  string `mapstructure:"moderatorGroup" yaml:"moderatorGroup"`
	Priority        int    `mapstructure:"priority" yaml:"priority"`
}

func CreateBackendFromOptions(ctx context.Context, name string, handler *meta.Handler, options any) (acl.Backend, error) {
	opts := Options{
		URL:             "ldap://localhost:389",
		Filter:          "(objectClass=groupOfNames)",
		GroupAttribute:  "cn",
		MemberAttribute: "member",
		Priority:        100,
	}

	if err := loader.DecodeOptions(Type, options, &opts); err != nil {
		return nil, errors.WithStack(err)
	}

	slog.DebugContext(ctx, "using ldap acl backend", log.ScrubbedURL("url", opts.URL), slog.String("baseDN", opts.BaseDN))

	source := NewSource(Dialer(opts.URL, opts.BindDN, opts.BindPassword), Mapping{
		BaseDN:          opts.BaseDN,
		Filter:          opts.Filter,
		GroupAttribute:  opts.GroupAttribute,
		MemberAttribute: opts.MemberAttribute,
		GrantAttribute:  opts.GrantAttribute,
		AdminGroup:      opts.AdminGroup,
		ModeratorGroup:  opts.ModeratorGroup,
	})

	backend := loader.New(name, opts.Priority, handler, source)

	if err := backend.Reload(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	return backend, nil
}

type conn struct {
	*ldap.Conn
}

func (c *conn) Close() {
	c.Conn.Close()
}

// Dialer opens a connection to url, binding with the given credentials when
// bindDN is not empty.
func Dialer(url, bindDN, bindPassword string) DialFunc {
	return func(ctx context.Context) (Searcher, error) {
		c, err := ldap.DialURL(url)
		if err != nil {
			return nil, errors.Wrapf(err, "could not dial '%s'", log.ScrubbedURL("url", url).Value.String())
		}

		if bindDN != "" {
			if err := c.Bind(bindDN, bindPassword); err != nil {
				c.Close()
				return nil, errors.Wrapf(err, "could not bind as '%s'", bindDN)
			}
		}

		return &conn{c}, nil
	}
}
