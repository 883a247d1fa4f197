package sheets

import (
	"context"

	"github.com/haya4M/cattle-fin-mobile/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionAppender mirrors a ledger entry to an external sheet.
	TransactionAppender interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// HeadcountAppender mirrors a monthly herd-size record.
	HeadcountAppender interface {
		AppendHeadcount(ctx context.Context, hc core.HeadcountRecord) (rowRef string, err error)
	}
)
