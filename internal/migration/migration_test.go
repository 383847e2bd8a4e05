package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	sub, err := source()
	require.NoError(t, err)

	names, err := fs.Glob(sub, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups, downs := 0, 0
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups++
			_, err := fs.Stat(sub, strings.TrimSuffix(name, ".up.sql")+".down.sql")
			assert.NoError(t, err, name)
		case strings.HasSuffix(name, ".down.sql"):
			downs++
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	sub, err := source()
	require.NoError(t, err)

	driver, err := iofs.New(sub, ".")
	require.NoError(t, err)
	defer driver.Close()

	first, err := driver.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := driver.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)
}

func TestBookingsSourceCheckListsEveryProvenance(t *testing.T) {
	sub, err := source()
	require.NoError(t, err)

	raw, err := fs.ReadFile(sub, "000002_bookings.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "CHECK (source IN ('subscription', 'manual', 'invoice'))")
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
}
