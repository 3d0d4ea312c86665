package db

import (
	"context"
	"testing"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestInTx_NoPool(t *testing.T) {
	called := false
	err := InTx(context.Background(), nil, func(context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error without a pool")
	}
	if err.Error() != "no database pool" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if called {
		t.Error("fn must not run without a transaction")
	}
}

func TestTxRunner_NoPool(t *testing.T) {
	run := TxRunner(nil)
	if err := run(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Error("expected error without a pool")
	}
}
