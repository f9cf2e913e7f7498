package ldap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/bornholm/burpacl/pkg/acl/loader"
	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
)

// Searcher is the subset of an LDAP connection used by the source.
type Searcher interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close()
}

type DialFunc func(ctx context.Context) (Searcher, error)

type Mapping struct {
	BaseDN          string
	Filter          string
	GroupAttribute  string
	MemberAttribute string
	GrantAttribute  string
	AdminGroup      string
	ModeratorGroup  string
}

// Source turns LDAP groups into member entries. It is read-only.
type Source struct {
	dial    DialFunc
	mapping Mapping

	mutex           sync.Mutex
	lastFingerprint string
}

// Entries implements loader.Source.
func (s *Source) Entries(ctx context.Context) ([]loader.Entry, error) {
	entries, err := s.search(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.mutex.Lock()
	s.lastFingerprint = fingerprint(entries)
	s.mutex.Unlock()

	return entries, nil
}

// Changed implements loader.Source.
func (s *Source) Changed(ctx context.Context) (bool, error) {
	entries, err := s.search(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return fingerprint(entries) != s.lastFingerprint, nil
}

func (s *Source) search(ctx context.Context) ([]loader.Entry, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	defer conn.Close()

	attributes := []string{s.mapping.GroupAttribute, s.mapping.MemberAttribute}
	if s.mapping.GrantAttribute != "" {
		attributes = append(attributes, s.mapping.GrantAttribute)
	}

	req := ldap.NewSearchRequest(
		s.mapping.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		s.mapping.Filter,
		attributes,
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		return nil, errors.Wrapf(err, "could not search groups under '%s'", s.mapping.BaseDN)
	}

	entries := make([]loader.Entry, 0, len(result.Entries))

	for _, e := range result.Entries {
		name := e.GetAttributeValue(s.mapping.GroupAttribute)
		if name == "" {
			slog.WarnContext(ctx, "ignoring ldap group without name", slog.String("dn", e.DN))
			continue
		}

		values := e.GetAttributeValues(s.mapping.MemberAttribute)
		members := make([]string, 0, len(values))
		for _, v := range values {
			members = append(members, memberName(v))
		}

		data, err := json.Marshal(members)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		switch name {
		case s.mapping.AdminGroup:
			entries = append(entries, loader.Entry{Key: loader.KeyAdmin, Value: string(data)})
			continue

		case s.mapping.ModeratorGroup:
			entries = append(entries, loader.Entry{Key: loader.KeyModerator, Value: string(data)})
			continue
		}

		entries = append(entries, loader.Entry{Key: loader.MemberKey(name), Value: string(data)})

		if s.mapping.GrantAttribute == "" {
			continue
		}

		if raw := e.GetAttributeValue(s.mapping.GrantAttribute); raw != "" {
			entries = append(entries, loader.Entry{Key: loader.GrantKey(name), Value: raw})
		}
	}

	return entries, nil
}

// memberName returns the value of the first RDN of a member DN, or the raw
// value for memberUid-like attributes.
func memberName(value string) string {
	dn, err := ldap.ParseDN(value)
	if err != nil || len(dn.RDNs) == 0 || len(dn.RDNs[0].Attributes) == 0 {
		return value
	}

	return dn.RDNs[0].Attributes[0].Value
}

func fingerprint(entries []loader.Entry) string {
	hash := sha256.New()
	for _, e := range entries {
		hash.Write([]byte(e.Key))
		hash.Write([]byte{0})
		hash.Write([]byte(e.Value))
		hash.Write([]byte{0})
	}

	return hex.EncodeToString(hash.Sum(nil))
}

func NewSource(dial DialFunc, mapping Mapping) *Source {
	return &Source{
		dial:    dial,
		mapping: mapping,
	}
}

var _ loader.Source = &Source{}
