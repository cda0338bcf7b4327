package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified name of the ledger service
const ServiceName = "fundledger.v1.LedgerService"

// Method names of LedgerService. Every method takes and returns a google.protobuf.Struct.
const (
	MethodCreateRecord           = "CreateRecord"
	MethodCreateCommissionRecord = "CreateCommissionRecord"
	MethodGetRecord              = "GetRecord"
	MethodListRecords            = "ListRecords"
	MethodUpdateRecord           = "UpdateRecord"
	MethodDeleteRecord           = "DeleteRecord"
	MethodTransferStatus         = "TransferStatus"
	MethodSetFundStatus          = "SetFundStatus"
	MethodGetBalance             = "GetBalance"
	MethodGetFinanceStatistics   = "GetFinanceStatistics"
	MethodCalculateCommission    = "CalculateCommission"
	MethodGetAdvice              = "GetAdvice"
)

// LedgerServiceServer is the server API for LedgerService
type LedgerServiceServer interface {
	CreateRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateCommissionRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TransferStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetFundStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetFinanceStatistics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CalculateCommission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAdvice(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(LedgerServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// LedgerServiceDesc describes LedgerService for grpc.Server.RegisterService
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodCreateRecord, LedgerServiceServer.CreateRecord),
		method(MethodCreateCommissionRecord, LedgerServiceServer.CreateCommissionRecord),
		method(MethodGetRecord, LedgerServiceServer.GetRecord),
		method(MethodListRecords, LedgerServiceServer.ListRecords),
		method(MethodUpdateRecord, LedgerServiceServer.UpdateRecord),
		method(MethodDeleteRecord, LedgerServiceServer.DeleteRecord),
		method(MethodTransferStatus, LedgerServiceServer.TransferStatus),
		method(MethodSetFundStatus, LedgerServiceServer.SetFundStatus),
		method(MethodGetBalance, LedgerServiceServer.GetBalance),
		method(MethodGetFinanceStatistics, LedgerServiceServer.GetFinanceStatistics),
		method(MethodCalculateCommission, LedgerServiceServer.CalculateCommission),
		method(MethodGetAdvice, LedgerServiceServer.GetAdvice),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fundledger/v1/ledger.proto",
}

// RegisterLedgerServiceServer registers srv on s
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

func method(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LedgerServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerClient calls LedgerService methods over conn
type LedgerClient struct {
	conn grpc.ClientConnInterface
}

// NewLedgerClient creates a new LedgerClient instance
func NewLedgerClient(conn grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{conn: conn}
}

// Call invokes the named method with req
func (c *LedgerClient) Call(ctx context.Context, method string, req map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
