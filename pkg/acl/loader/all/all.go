package all

import (
	_ "github.com/bornholm/burpacl/pkg/acl/loader/basic"
	_ "github.com/bornholm/burpacl/pkg/acl/loader/expr"
	_ "github.com/bornholm/burpacl/pkg/acl/loader/ldap"
	_ "github.com/bornholm/burpacl/pkg/acl/loader/s3"
	_ "github.com/bornholm/burpacl/pkg/acl/loader/sqlite"
)
