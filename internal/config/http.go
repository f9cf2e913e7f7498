package config

import "github.com/goccy/go-yaml"

type HTTP struct {
	Address   InterpolatedString `yaml:"address"`
	RateLimit RateLimit          `yaml:"rateLimit"`
	Pprof     InterpolatedBool   `yaml:"pprof"`
}

type RateLimit struct {
	Rate  InterpolatedFloat `yaml:"rate"`
	Burst InterpolatedInt   `yaml:"burst"`
}

func NewDefaultHTTPConfig() HTTP {
	return HTTP{
		Address: "${BURPACL_HTTP_ADDRESS:-:8080}",
		RateLimit: RateLimit{
			Rate:  10,
			Burst: 20,
		},
		Pprof: false,
	}
}

func NewHTTPConfigCommentMap() yaml.CommentMap {
	return yaml.CommentMap{
		"":                 []*yaml.Comment{yaml.HeadComment(" Webserver configuration")},
		".address":         []*yaml.Comment{yaml.HeadComment(" Webserver's listening address")},
		".rateLimit":       []*yaml.Comment{yaml.HeadComment(" Per user rate limiting of the API")},
		".rateLimit.rate":  []*yaml.Comment{yaml.HeadComment(" Allowed requests per second")},
		".rateLimit.burst": []*yaml.Comment{yaml.HeadComment(" Maximum burst of requests")},
		".pprof":           []*yaml.Comment{yaml.HeadComment(" Expose profiling endpoints under /debug/pprof (admin only)")},
	}
}
