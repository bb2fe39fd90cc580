package token

import (
	"context"
	"strings"
	"testing"

	"github.com/louisbranch/broadside/internal/battleship/domain"
)

func TestDebitToEscrowMovesBalance(t *testing.T) {
	ledger := NewInMemoryLedger(map[domain.Address]uint64{"p1": 1000})
	ctx := context.Background()

	if err := ledger.DebitToEscrow(ctx, "p1", 400); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := ledger.Balance("p1"); got != 600 {
		t.Fatalf("expected balance 600, got %d", got)
	}
	if got := ledger.Escrow(); got != 400 {
		t.Fatalf("expected escrow 400, got %d", got)
	}
}

func TestDebitToEscrowRejectsInsufficientBalance(t *testing.T) {
	ledger := NewInMemoryLedger(map[domain.Address]uint64{"p1": 10})

	err := ledger.DebitToEscrow(context.Background(), "p1", 11)
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	if !strings.Contains(err.Error(), "insufficient balance") {
		t.Fatalf("unexpected error %v", err)
	}
	if got := ledger.Balance("p1"); got != 10 {
		t.Fatalf("expected failed debit to leave balance untouched, got %d", got)
	}
}

func TestCreditFromEscrowRequiresEscrowFunds(t *testing.T) {
	ledger := NewInMemoryLedger(nil)

	if err := ledger.CreditFromEscrow(context.Background(), "p2", 1); err == nil {
		t.Fatal("expected insufficient escrow error")
	}
}

func TestMintTracksIssuedSupply(t *testing.T) {
	ledger := NewInMemoryLedger(nil)
	ctx := context.Background()

	if err := ledger.Mint(ctx, "p2", 19); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := ledger.Balance("p2"); got != 19 {
		t.Fatalf("expected minted balance 19, got %d", got)
	}
	if got := ledger.Minted(); got != 19 {
		t.Fatalf("expected minted supply 19, got %d", got)
	}
}

func TestApplyDispatchesOps(t *testing.T) {
	ledger := NewInMemoryLedger(map[domain.Address]uint64{"p1": 100})
	ctx := context.Background()

	steps := []Instruction{
		{Op: OpDebitToEscrow, Owner: "p1", Amount: 100},
		{Op: OpCreditFromEscrow, Recipient: "p2", Amount: 60},
		{Op: OpMint, Recipient: "p2", Amount: 5},
	}
	for _, instr := range steps {
		if err := Apply(ctx, ledger, instr); err != nil {
			t.Fatalf("apply %s: %v", instr.Op, err)
		}
	}
	if got := ledger.Balance("p2"); got != 65 {
		t.Fatalf("expected p2 balance 65, got %d", got)
	}
	if got := ledger.Escrow(); got != 40 {
		t.Fatalf("expected residual escrow 40, got %d", got)
	}
}

func TestApplyRejectsUnknownOp(t *testing.T) {
	if err := Apply(context.Background(), NewInMemoryLedger(nil), Instruction{Op: "burn"}); err == nil {
		t.Fatal("expected unknown op error")
	}
}
