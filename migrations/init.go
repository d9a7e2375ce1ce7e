package migrations

import (
	"io/fs"

	prefs "github.com/goliatone/go-prefs"
)

func init() {
	coreFS, err := fs.Sub(prefs.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}
