package config

import (
	"fmt"

	"github.com/bornholm/burpacl/pkg/acl/cache"
	"github.com/bornholm/burpacl/pkg/acl/cache/memory"
	"github.com/bornholm/burpacl/pkg/acl/cache/redis"
	"github.com/goccy/go-yaml"
)

type Cache struct {
	Type    InterpolatedString `yaml:"type"`
	Options *InterpolatedMap   `yaml:"options"`
}

func NewDefaultCacheConfig() Cache {
	return Cache{
		Type: InterpolatedString(fmt.Sprintf("${BURPACL_CACHE_TYPE:-%s}", memory.Type)),
		Options: &InterpolatedMap{
			Data: map[string]any{
				"size": "${BURPACL_CACHE_SIZE:-1024}",
			},
		},
	}
}

func NewCacheConfigCommentMap() yaml.CommentMap {
	return yaml.CommentMap{
		"":      []*yaml.Comment{yaml.HeadComment(" Resolved grants cache")},
		".type": []*yaml.Comment{yaml.HeadComment(" Cache type", fmt.Sprintf(" Available: %v", cache.Registered()))},
		".options": []*yaml.Comment{
			yaml.HeadComment(" Cache options"),
			getOptionsComment("Redis cache", redis.Options{URL: "redis://localhost:6379/0", Prefix: redis.DefaultPrefix}),
		},
	}
}
