package handler

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "omnipos.inventory.v1.InventoryMutationService"

const (
	InventoryMutationService_Mutate_FullMethodName        = "/" + ServiceName + "/Mutate"
	InventoryMutationService_GetStock_FullMethodName      = "/" + ServiceName + "/GetStock"
	InventoryMutationService_ListMovements_FullMethodName = "/" + ServiceName + "/ListMovements"
)

// InventoryMutationServiceServer is the server API for the inventory
// mutation service.
type InventoryMutationServiceServer interface {
	Mutate(context.Context, *MutateRequest) (*MutateResponse, error)
	GetStock(context.Context, *GetStockRequest) (*StockResponse, error)
	ListMovements(context.Context, *ListMovementsRequest) (*ListMovementsResponse, error)
}

func RegisterInventoryMutationServiceServer(s grpc.ServiceRegistrar, srv InventoryMutationServiceServer) {
	s.RegisterService(&InventoryMutationService_ServiceDesc, srv)
}

func _InventoryMutationService_Mutate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MutateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryMutationServiceServer).Mutate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: InventoryMutationService_Mutate_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryMutationServiceServer).Mutate(ctx, req.(*MutateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryMutationService_GetStock_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetStockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryMutationServiceServer).GetStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: InventoryMutationService_GetStock_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryMutationServiceServer).GetStock(ctx, req.(*GetStockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryMutationService_ListMovements_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListMovementsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryMutationServiceServer).ListMovements(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: InventoryMutationService_ListMovements_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryMutationServiceServer).ListMovements(ctx, req.(*ListMovementsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// InventoryMutationService_ServiceDesc is written by hand in the shape
// protoc-gen-go-grpc emits; messages travel with the JSON codec.
var InventoryMutationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryMutationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Mutate",
			Handler:    _InventoryMutationService_Mutate_Handler,
		},
		{
			MethodName: "GetStock",
			Handler:    _InventoryMutationService_GetStock_Handler,
		},
		{
			MethodName: "ListMovements",
			Handler:    _InventoryMutationService_ListMovements_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/inventory/v1/inventory_mutation.proto",
}

// InventoryMutationServiceClient is the client API for the service. Calls
// always use the JSON content subtype.
type InventoryMutationServiceClient interface {
	Mutate(ctx context.Context, in *MutateRequest, opts ...grpc.CallOption) (*MutateResponse, error)
	GetStock(ctx context.Context, in *GetStockRequest, opts ...grpc.CallOption) (*StockResponse, error)
	ListMovements(ctx context.Context, in *ListMovementsRequest, opts ...grpc.CallOption) (*ListMovementsResponse, error)
}

type inventoryMutationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryMutationServiceClient(cc grpc.ClientConnInterface) InventoryMutationServiceClient {
	return &inventoryMutationServiceClient{cc}
}

func (c *inventoryMutationServiceClient) Mutate(ctx context.Context, in *MutateRequest, opts ...grpc.CallOption) (*MutateResponse, error) {
	out := new(MutateResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, InventoryMutationService_Mutate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryMutationServiceClient) GetStock(ctx context.Context, in *GetStockRequest, opts ...grpc.CallOption) (*StockResponse, error) {
	out := new(StockResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, InventoryMutationService_GetStock_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryMutationServiceClient) ListMovements(ctx context.Context, in *ListMovementsRequest, opts ...grpc.CallOption) (*ListMovementsResponse, error) {
	out := new(ListMovementsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, InventoryMutationService_ListMovements_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
