package query

import (
	"github.com/goliatone/go-prefs/access"
)

func safeGuard(g access.Guard) access.Guard {
	return access.Ensure(g)
}
