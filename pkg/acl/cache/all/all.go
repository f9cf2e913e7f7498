package all

import (
	_ "github.com/bornholm/burpacl/pkg/acl/cache/memory"
	_ "github.com/bornholm/burpacl/pkg/acl/cache/redis"
)
