package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/loader/basic"
	"github.com/bornholm/burpacl/pkg/acl/loader/expr"
	"github.com/bornholm/burpacl/pkg/acl/loader/ldap"
	"github.com/bornholm/burpacl/pkg/acl/loader/s3"
	"github.com/bornholm/burpacl/pkg/acl/loader/sqlite"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

type ACL struct {
	Backends        []Backend             `yaml:"backends"`
	Extended        InterpolatedBool      `yaml:"extended"`
	Legacy          InterpolatedBool      `yaml:"legacy"`
	AssumeRW        InterpolatedBool      `yaml:"assumeRw"`
	ImplicitLink    InterpolatedBool      `yaml:"implicitLink"`
	Standalone      InterpolatedBool      `yaml:"standalone"`
	RefreshInterval *InterpolatedDuration `yaml:"refreshInterval"`
}

type Backend struct {
	// Name identifies the backend in the admin API, defaults to its type.
	Name    InterpolatedString `yaml:"name"`
	Type    InterpolatedString `yaml:"type"`
	Options *InterpolatedMap   `yaml:"options"`
}

func NewDefaultACLConfig() ACL {
	return ACL{
		Backends: []Backend{
			{
				Type: InterpolatedString(fmt.Sprintf("${BURPACL_ACL_TYPE:-%s}", basic.Type)),
				Options: &InterpolatedMap{
					Data: map[string]any{
						"path":    "${BURPACL_ACL_PATH:-burpui.cfg}",
						"section": basic.DefaultSection,
					},
				},
			},
		},
		Extended:        true,
		Legacy:          false,
		AssumeRW:        true,
		ImplicitLink:    true,
		Standalone:      false,
		RefreshInterval: NewInterpolatedDuration(acl.DefaultRefreshInterval),
	}
}

func NewACLConfigCommentMap() yaml.CommentMap {
	return yaml.CommentMap{
		"":          []*yaml.Comment{yaml.HeadComment(" ACL configuration")},
		".backends": []*yaml.Comment{yaml.HeadComment(" ACL backends, queried by descending priority", " A 'none' entry disables every backend and grants everything to everyone")},
		".backends[0].name": []*yaml.Comment{
			yaml.HeadComment(" Backend name, unique among backends. Defaults to the backend type"),
		},
		".backends[0].type": []*yaml.Comment{
			yaml.HeadComment(" Backend type", fmt.Sprintf(" Available: %v", append(acl.Registered(), acl.TypeNone))),
		},
		".backends[0].options": []*yaml.Comment{
			yaml.HeadComment(" Backend options"),
			getOptionsComment("S3 backend", s3.Options{Object: "burpui.cfg", Section: s3.DefaultSection, Secure: true}),
			getOptionsComment("SQLite backend", sqlite.Options{Path: "burpacl.sqlite"}),
			getOptionsComment("LDAP backend", ldap.Options{URL: "ldap://localhost:389", Filter: "(objectClass=groupOfNames)", GroupAttribute: "cn", MemberAttribute: "member"}),
			getOptionsComment("Expression backend", expr.Options{Rules: []expr.RuleDefinition{{Kind: expr.KindClientAllowed, Script: `username == client`}}}),
		},
		".extended":        []*yaml.Comment{yaml.HeadComment(" Match clients and agents with glob patterns")},
		".legacy":          []*yaml.Comment{yaml.HeadComment(" Legacy mode: exact names only, granted users get read-write access")},
		".assumeRw":        []*yaml.Comment{yaml.HeadComment(" Grant read-write access when no ro/rw scope applies")},
		".implicitLink":    []*yaml.Comment{yaml.HeadComment(" Allow users to see the client carrying their own name")},
		".standalone":      []*yaml.Comment{yaml.HeadComment(" Single server deployment, the server is named 'local'")},
		".refreshInterval": []*yaml.Comment{yaml.HeadComment(" Minimum interval between two checks of the backends sources")},
	}
}

// RefreshDuration returns the configured refresh interval, or the default.
func (a ACL) RefreshDuration() time.Duration {
	if a.RefreshInterval == nil {
		return acl.DefaultRefreshInterval
	}

	return time.Duration(*a.RefreshInterval)
}

func getOptionsComment(message string, opts any) *yaml.Comment {
	rawOpts, err := yaml.Marshal(opts)
	if err != nil {
		panic(errors.WithStack(err))
	}

	comments := []string{message, "options:"}
	comments = append(comments, slices.Collect(func(yield func(string) bool) {
		for _, str := range strings.Split(strings.TrimSpace(string(rawOpts)), "\n") {
			if !yield("  " + str) {
				return
			}
		}
	})...)

	return yaml.FootComment(comments...)
}
