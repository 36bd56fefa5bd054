package export

import (
	"testing"

	"timetable/testutil"
)

func TestNoDirectInfraImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InfraImportForbidden, "storage backends are selected by core and blob only")
}
