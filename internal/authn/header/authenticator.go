package header

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"

	"github.com/bornholm/burpacl/internal/authn"
	"github.com/pkg/errors"
)

type User struct {
	name string
}

// UserName implements authn.User.
func (u *User) UserName() string {
	return u.name
}

var _ authn.User = &User{}

// NewAuthenticator trusts the username set in the given header by a reverse
// proxy. Requests coming from an address outside of trusted are ignored.
func NewAuthenticator(header string, trusted ...netip.Prefix) authn.Authenticator {
	return authn.AuthenticateFunc(func(w http.ResponseWriter, r *http.Request) (authn.User, error) {
		username := r.Header.Get(header)
		if username == "" {
			return nil, nil
		}

		addr, err := remoteAddr(r)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		for _, prefix := range trusted {
			if prefix.Contains(addr) {
				return &User{name: username}, nil
			}
		}

		slog.WarnContext(r.Context(), "ignoring user header from untrusted address", slog.String("header", header), slog.String("remoteAddr", addr.String()))

		return nil, nil
	})
}

func remoteAddr(r *http.Request) (netip.Addr, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, errors.Wrapf(err, "could not parse remote address '%s'", r.RemoteAddr)
	}

	return addr.Unmap(), nil
}

// ParsePrefixes parses addresses and CIDR ranges.
func ParsePrefixes(values ...string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		if prefix, err := netip.ParsePrefix(v); err == nil {
			prefixes = append(prefixes, prefix)
			continue
		}

		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid trusted proxy '%s'", v)
		}

		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return prefixes, nil
}
