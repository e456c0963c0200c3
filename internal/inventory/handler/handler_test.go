package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	idemrepo "github.com/fekuna/omnipos-inventory-service/internal/idempotency/repository"
	idemusecase "github.com/fekuna/omnipos-inventory-service/internal/idempotency/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestToStatus(t *testing.T) {
	cases := map[apperr.Code]codes.Code{
		apperr.CodeValidation:              codes.InvalidArgument,
		apperr.CodeRecordNotFound:          codes.NotFound,
		apperr.CodeInsufficientStock:       codes.FailedPrecondition,
		apperr.CodeNegativeStock:           codes.FailedPrecondition,
		apperr.CodeReservedConflict:        codes.FailedPrecondition,
		apperr.CodeConcurrentStockConflict: codes.Aborted,
		apperr.CodeOperationInProgress:     codes.Unavailable,
		apperr.CodeStorage:                 codes.Internal,
	}
	for code, want := range cases {
		st := status.Convert(toStatus(apperr.New(code, "details")))
		assert.Equal(t, want, st.Code(), code)
		assert.Equal(t, string(code)+": details", st.Message())
	}

	raw := status.Convert(toStatus(errors.New("pq: password authentication failed")))
	assert.Equal(t, codes.Internal, raw.Code())
	assert.Equal(t, "StorageError: storage failure", raw.Message())
}

func newTestServer(t *testing.T) (InventoryMutationServiceClient, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	coordinator := idemusecase.NewCoordinator(idemrepo.NewMemoryRepository(), time.Hour, logger.NewNop(), nil)
	uc := usecase.NewInventoryUseCase(store.Repository(), store, coordinator, logger.NewNop())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryLoggingInterceptor(logger.NewNop())))
	RegisterInventoryMutationServiceServer(srv, NewInventoryHandler(uc, logger.NewNop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewInventoryMutationServiceClient(conn), store
}

func TestService_EndToEnd(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), auth.HeaderUserID, "clerk-7")

	cost := "3.25"
	res, err := client.Mutate(ctx, &MutateRequest{
		IdempotencyKey: "req-1",
		OperationType:  "INBOUND",
		ProductID:      "P",
		Location:       "A-01",
		Quantity:       50,
		UnitCost:       &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Inventory.Quantity)
	assert.Equal(t, "clerk-7", res.Mutation.OperatorID)
	assert.Equal(t, "3.25", res.Inventory.UnitCost.Decimal.String())

	again, err := client.Mutate(ctx, &MutateRequest{
		IdempotencyKey: "req-1",
		OperationType:  "inbound",
		ProductID:      "P",
		Location:       "A-01",
		Quantity:       50,
		UnitCost:       &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, res.Mutation.Number, again.Mutation.Number)

	_, err = client.Mutate(ctx, &MutateRequest{
		IdempotencyKey: "req-2",
		OperationType:  "outbound",
		ProductID:      "P",
		Quantity:       80,
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	stock, err := client.GetStock(ctx, &GetStockRequest{ProductID: "P"})
	require.NoError(t, err)
	assert.Equal(t, int64(50), stock.AvailableQuantity)

	mvs, err := client.ListMovements(ctx, &ListMovementsRequest{ProductID: "P"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), mvs.Total)
	require.Len(t, mvs.Movements, 1)
	assert.Equal(t, int64(50), mvs.Movements[0].QuantityChange)
}

func TestService_MissingOperatorAndBadCost(t *testing.T) {
	client, _ := newTestServer(t)

	_, err := client.Mutate(context.Background(), &MutateRequest{
		IdempotencyKey: "req-1", OperationType: "inbound", ProductID: "P", Quantity: 1,
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bad := "twelve"
	withUser := metadata.AppendToOutgoingContext(context.Background(), auth.HeaderUserID, "u1")
	_, err = client.Mutate(withUser, &MutateRequest{
		IdempotencyKey: "req-2", OperationType: "inbound", ProductID: "P", Quantity: 1,
		UnitCost: &bad,
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ListMovements(context.Background(), &ListMovementsRequest{OperationType: "teleport"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestMutate_OperatorComesFromCallerIdentity(t *testing.T) {
	store := repository.NewMemoryStore()
	coordinator := idemusecase.NewCoordinator(idemrepo.NewMemoryRepository(), time.Hour, logger.NewNop(), nil)
	h := NewInventoryHandler(usecase.NewInventoryUseCase(store.Repository(), store, coordinator, logger.NewNop()), logger.NewNop())

	body := []byte(`{"idempotency_key":"req-1","operation_type":"inbound","product_id":"P","quantity":5,"operator_id":"someone-else"}`)
	var req MutateRequest
	require.NoError(t, json.Unmarshal(body, &req))

	_, err := h.Mutate(context.Background(), &req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	res, err := h.Mutate(auth.WithUserID(context.Background(), "clerk-7"), &req)
	require.NoError(t, err)
	assert.Equal(t, "clerk-7", res.Mutation.OperatorID)
}
