package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"spendview/internal/core"
)

func TestExpenseService_CreatePublishesSync(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewExpenseService(newRepo(t), pub, nil)

	created, err := svc.CreateExpense(context.Background(), newExpense("Lunch"))
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	id, _ := strconv.ParseInt(created.ID, 10, 64)
	if len(pub.calls) != 1 || pub.calls[0] != (publishCall{kind: "sync", id: id}) {
		t.Fatalf("unexpected publish calls: %+v", pub.calls)
	}
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(newRepo(t), pub, nil)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, newExpense("Lunch"))
	if err != nil {
		t.Fatalf("CreateExpense should succeed when publishing fails: %v", err)
	}
	if err := svc.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense should succeed when publishing fails: %v", err)
	}
}

func TestExpenseService_ValidationIsNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewExpenseService(newRepo(t), pub, nil)

	_, err := svc.CreateExpense(context.Background(), core.NewExpense{Description: "no amount"})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatalf("nothing should be published, got %+v", pub.calls)
	}
}

func TestExpenseService_DeleteCarriesRemoteID(t *testing.T) {
	pub := &fakePublisher{}
	repo := newRepo(t)
	svc := NewExpenseService(repo, pub, nil)
	ctx := context.Background()

	created, _ := svc.CreateExpense(ctx, newExpense("Taxi"))
	id, _ := strconv.ParseInt(created.ID, 10, 64)
	if err := repo.MarkSynced(ctx, id, "r-77"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	if err := svc.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	last := pub.calls[len(pub.calls)-1]
	if last != (publishCall{kind: "delete", id: id, remoteID: "r-77"}) {
		t.Fatalf("unexpected delete message: %+v", last)
	}

	if err := svc.DeleteExpense(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if err := svc.DeleteExpense(ctx, "abc"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("malformed id should be not found, got %v", err)
	}
}

func TestExpenseService_WithoutPublisher(t *testing.T) {
	svc := NewExpenseService(newRepo(t), nil, nil)
	if _, err := svc.CreateExpense(context.Background(), newExpense("Lunch")); err != nil {
		t.Fatalf("CreateExpense without publisher: %v", err)
	}
}

func TestExpenseService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := &ExpenseService{}
		if err := service.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes publisher", func(t *testing.T) {
		pub := &fakePublisher{}
		service := NewExpenseService(newRepo(t), pub, nil)
		if err := service.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !pub.closed {
			t.Error("publisher should be closed")
		}
	})
}
