package ledger

import (
	"context"
	"fmt"

	"github.com/ganot/hourbank/internal/domain/project"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// TransactionPage is one page of ledger entries in ledger order.
type TransactionPage struct {
	Transactions []project.HourTransaction `json:"transactions"`
	Total        int                       `json:"total"`
	Limit        int                       `json:"limit"`
	Offset       int                       `json:"offset"`
}

// Transactions returns ledger entries for a project, oldest first.
func (s *Service) Transactions(ctx context.Context, projectID string, limit, offset int) (*TransactionPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		return nil, project.Validationf("offset must not be negative")
	}
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, project.StoreError(projectID, err)
	}
	txns, total, err := s.transactions.List(ctx, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing hour transactions: %w", err)
	}
	if txns == nil {
		txns = []project.HourTransaction{}
	}
	return &TransactionPage{Transactions: txns, Total: total, Limit: limit, Offset: offset}, nil
}

// ChainBreak locates one inconsistency in a project's ledger.
type ChainBreak struct {
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// ChainReport is the result of replaying a project's ledger.
type ChainReport struct {
	ProjectID string       `json:"projectId"`
	Valid     bool         `json:"valid"`
	Checked   int          `json:"checked"`
	Breaks    []ChainBreak `json:"breaks"`
}

// VerifyChain replays the ledger and checks that each entry starts where the
// previous one ended and that the replay lands on the stored balances.
func (s *Service) VerifyChain(ctx context.Context, projectID string) (*ChainReport, error) {
	proj, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, project.StoreError(projectID, err)
	}

	report := &ChainReport{ProjectID: projectID, Breaks: []ChainBreak{}}
	var prev *project.HourTransaction
	for offset := 0; ; offset += maxPageSize {
		txns, _, err := s.transactions.List(ctx, projectID, maxPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("listing hour transactions: %w", err)
		}
		for i := range txns {
			cur := txns[i]
			report.Breaks = append(report.Breaks, checkEntry(prev, &cur)...)
			prev = &cur
			report.Checked++
		}
		if len(txns) < maxPageSize {
			break
		}
	}

	switch {
	case prev == nil:
		report.Breaks = append(report.Breaks, ChainBreak{Reason: "ledger is empty"})
	case !prev.BalanceAfter.Equal(proj.UsedHours):
		report.Breaks = append(report.Breaks, ChainBreak{
			Seq:    prev.Seq,
			Reason: fmt.Sprintf("ledger ends at used %s but project has %s", prev.BalanceAfter, proj.UsedHours),
		})
	case !prev.TotalAfter.Equal(proj.TotalHours):
		report.Breaks = append(report.Breaks, ChainBreak{
			Seq:    prev.Seq,
			Reason: fmt.Sprintf("ledger ends at total %s but project has %s", prev.TotalAfter, proj.TotalHours),
		})
	}
	report.Valid = len(report.Breaks) == 0
	return report, nil
}

func checkEntry(prev, cur *project.HourTransaction) []ChainBreak {
	var breaks []ChainBreak
	add := func(format string, args ...any) {
		breaks = append(breaks, ChainBreak{Seq: cur.Seq, Reason: fmt.Sprintf(format, args...)})
	}

	if prev == nil {
		if cur.Kind != project.KindAllocation {
			add("first entry is %s, want allocation", cur.Kind)
		}
	} else {
		if !prev.BalanceAfter.Equal(cur.BalanceBefore) {
			add("balanceBefore %s does not match previous balanceAfter %s", cur.BalanceBefore, prev.BalanceAfter)
		}
		if !prev.TotalAfter.Equal(cur.TotalBefore) {
			add("totalBefore %s does not match previous totalAfter %s", cur.TotalBefore, prev.TotalAfter)
		}
	}

	switch cur.Kind {
	case project.KindAllocation, project.KindExtension:
		if !cur.TotalBefore.Add(cur.Delta).Equal(cur.TotalAfter) || !cur.BalanceBefore.Equal(cur.BalanceAfter) {
			add("%s delta %s does not explain totals %s -> %s", cur.Kind, cur.Delta, cur.TotalBefore, cur.TotalAfter)
		}
	default:
		if !cur.BalanceBefore.Add(cur.Delta).Equal(cur.BalanceAfter) || !cur.TotalBefore.Equal(cur.TotalAfter) {
			add("%s delta %s does not explain balances %s -> %s", cur.Kind, cur.Delta, cur.BalanceBefore, cur.BalanceAfter)
		}
	}

	if cur.BalanceAfter.IsNegative() || cur.BalanceAfter.GreaterThan(cur.TotalAfter) {
		add("used %s outside budget %s", cur.BalanceAfter, cur.TotalAfter)
	}
	return breaks
}
