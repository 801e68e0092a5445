package usecase_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
	"github.com/iho/txpipeline/internal/usecase"
)

func TestFlag_Converted(t *testing.T) {
	records := []domain.Transaction{
		tx("1", "a", "USD", "15000", "2024-01-01"),
		tx("2", "a", "USD", "-5", "2024-01-01"),
		tx("3", "a", "USD", "500", "2024-01-01"),
		tx("4", "a", "XXX", "20000", "2024-01-01"),
		tx("5", "a", "USD", "10000", "2024-01-01"),
	}
	for i := range records {
		records[i].Converted = true
		records[i].AmountUSD = records[i].AmountOriginal
	}
	records[3].AmountUSD = decimal.NullDecimal{}

	suspicious, clean := usecase.Flag(records, decimal.NewFromInt(10000))

	if got := ids(suspicious); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("unexpected suspicious set %v", got)
	}
	if got := ids(clean); len(got) != 3 || got[0] != "3" || got[1] != "4" || got[2] != "5" {
		t.Fatalf("unexpected clean set %v", got)
	}
}

func TestFlag_Unconverted(t *testing.T) {
	records := []domain.Transaction{
		tx("1", "a", "EUR", "15000", "2024-01-01"),
		tx("2", "a", "EUR", "-1", "2024-01-01"),
	}

	suspicious, clean := usecase.Flag(records, decimal.NewFromInt(10000))

	if len(suspicious) != 1 || suspicious[0].TransactionID.String != "2" {
		t.Fatalf("unexpected suspicious set %v", ids(suspicious))
	}
	if len(clean) != 1 {
		t.Fatalf("unexpected clean set %v", ids(clean))
	}
}

func TestFlag_Empty(t *testing.T) {
	suspicious, clean := usecase.Flag(nil, decimal.NewFromInt(10000))
	if len(suspicious) != 0 || len(clean) != 0 {
		t.Fatalf("expected empty partitions")
	}
}
