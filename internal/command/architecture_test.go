package command

import (
	"testing"

	"payorledger/testutil"
)

func TestCommandsDoNotReachStorage(t *testing.T) {
	forbidden := testutil.ImportsUnder("payorledger/internal/syncer", "payorledger/internal/infra", "payorledger/internal/history")
	testutil.AssertNoDirectImports(t, ".", forbidden, "commands only mutate the ledger")
}
