package config

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	getEnv = func(key string) string {
		switch key {
		case "BURPACL_ACL_PATH":
			return "/etc/burp/burpui.cfg"
		case "BURPACL_CACHE_TYPE":
			return "redis"
		}
		return ""
	}

	conf := NewDefaultConfig()

	if err := Interpolate(conf); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if e, g := 1, len(conf.ACL.Backends); e != g {
		t.Fatalf("len(conf.ACL.Backends): expected '%v', got '%v'", e, g)
	}

	if e, g := "basic", string(conf.ACL.Backends[0].Type); e != g {
		t.Errorf("conf.ACL.Backends[0].Type: expected '%v', got '%v'", e, g)
	}

	if e, g := "/etc/burp/burpui.cfg", conf.ACL.Backends[0].Options.Data["path"]; e != g {
		t.Errorf("conf.ACL.Backends[0].Options.Data[\"path\"]: expected '%v', got '%v'", e, g)
	}

	if e, g := "redis", string(conf.Cache.Type); e != g {
		t.Errorf("conf.Cache.Type: expected '%v', got '%v'", e, g)
	}

	if !bool(conf.ACL.Extended) || !bool(conf.ACL.AssumeRW) || bool(conf.ACL.Legacy) {
		t.Errorf("conf.ACL: unexpected default flags '%+v'", conf.ACL)
	}

	if e, g := 30*time.Second, conf.ACL.RefreshDuration(); e != g {
		t.Errorf("conf.ACL.RefreshDuration(): expected '%v', got '%v'", e, g)
	}
}

func TestLoadACLConfig(t *testing.T) {
	getEnv = func(key string) string {
		if key == "LEGACY" {
			return "true"
		}
		return ""
	}

	raw := `
acl:
  legacy: ${LEGACY}
  refreshInterval: 5m
  backends:
    - type: none
    - type: sqlite
      options:
        path: acl.sqlite
        priority: 10
`

	conf := NewDefaultConfig()

	if err := Load(strings.NewReader(raw), conf); err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	if !bool(conf.ACL.Legacy) {
		t.Errorf("conf.ACL.Legacy: expected true, got false")
	}

	if e, g := 5*time.Minute, conf.ACL.RefreshDuration(); e != g {
		t.Errorf("conf.ACL.RefreshDuration(): expected '%v', got '%v'", e, g)
	}

	if e, g := 2, len(conf.ACL.Backends); e != g {
		t.Fatalf("len(conf.ACL.Backends): expected '%v', got '%v'", e, g)
	}

	if e, g := "sqlite", string(conf.ACL.Backends[1].Type); e != g {
		t.Errorf("conf.ACL.Backends[1].Type: expected '%v', got '%v'", e, g)
	}
}
