package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ShadowFalcon24/atomic-cloud/internal/codec"
)

const ServiceName = "atomic.manage.ManageService"

const (
	MethodRequestStop    = "/" + ServiceName + "/RequestStop"
	MethodSetResource    = "/" + ServiceName + "/SetResource"
	MethodDeleteResource = "/" + ServiceName + "/DeleteResource"
	MethodCreateNode     = "/" + ServiceName + "/CreateNode"
	MethodCreateGroup    = "/" + ServiceName + "/CreateGroup"
	MethodScheduleServer = "/" + ServiceName + "/ScheduleServer"
	MethodWriteToScreen  = "/" + ServiceName + "/WriteToScreen"
	MethodGetNode        = "/" + ServiceName + "/GetNode"
	MethodGetGroup       = "/" + ServiceName + "/GetGroup"
	MethodGetServer      = "/" + ServiceName + "/GetServer"
	MethodListNodes      = "/" + ServiceName + "/ListNodes"
	MethodListGroups     = "/" + ServiceName + "/ListGroups"
	MethodListServers    = "/" + ServiceName + "/ListServers"
	MethodTransferUsers  = "/" + ServiceName + "/TransferUsers"
)

// ManageServiceServer is the controller side of the manage service.
type ManageServiceServer interface {
	RequestStop(context.Context, *Empty) (*Empty, error)
	SetResource(context.Context, *SetResourceRequest) (*Empty, error)
	DeleteResource(context.Context, *DeleteResourceRequest) (*Empty, error)
	CreateNode(context.Context, *NodeDetail) (*Empty, error)
	CreateGroup(context.Context, *GroupDetail) (*Empty, error)
	ScheduleServer(context.Context, *ServerProposal) (*StringValue, error)
	WriteToScreen(context.Context, *WriteScreenRequest) (*Empty, error)
	GetNode(context.Context, *NameRequest) (*NodeDetail, error)
	GetGroup(context.Context, *NameRequest) (*GroupDetail, error)
	GetServer(context.Context, *IDRequest) (*ServerDetail, error)
	ListNodes(context.Context, *Empty) (*NodeList, error)
	ListGroups(context.Context, *Empty) (*GroupList, error)
	ListServers(context.Context, *Empty) (*ServerList, error)
	TransferUsers(context.Context, *TransferUsersRequest) (*UInt32Value, error)
}

// UnimplementedManageServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedManageServiceServer struct{}

func (UnimplementedManageServiceServer) RequestStop(context.Context, *Empty) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestStop not implemented")
}
func (UnimplementedManageServiceServer) SetResource(context.Context, *SetResourceRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SetResource not implemented")
}
func (UnimplementedManageServiceServer) DeleteResource(context.Context, *DeleteResourceRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteResource not implemented")
}
func (UnimplementedManageServiceServer) CreateNode(context.Context, *NodeDetail) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateNode not implemented")
}
func (UnimplementedManageServiceServer) CreateGroup(context.Context, *GroupDetail) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateGroup not implemented")
}
func (UnimplementedManageServiceServer) ScheduleServer(context.Context, *ServerProposal) (*StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ScheduleServer not implemented")
}
func (UnimplementedManageServiceServer) WriteToScreen(context.Context, *WriteScreenRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method WriteToScreen not implemented")
}
func (UnimplementedManageServiceServer) GetNode(context.Context, *NameRequest) (*NodeDetail, error) {
	return nil, status.Error(codes.Unimplemented, "method GetNode not implemented")
}
func (UnimplementedManageServiceServer) GetGroup(context.Context, *NameRequest) (*GroupDetail, error) {
	return nil, status.Error(codes.Unimplemented, "method GetGroup not implemented")
}
func (UnimplementedManageServiceServer) GetServer(context.Context, *IDRequest) (*ServerDetail, error) {
	return nil, status.Error(codes.Unimplemented, "method GetServer not implemented")
}
func (UnimplementedManageServiceServer) ListNodes(context.Context, *Empty) (*NodeList, error) {
	return nil, status.Error(codes.Unimplemented, "method ListNodes not implemented")
}
func (UnimplementedManageServiceServer) ListGroups(context.Context, *Empty) (*GroupList, error) {
	return nil, status.Error(codes.Unimplemented, "method ListGroups not implemented")
}
func (UnimplementedManageServiceServer) ListServers(context.Context, *Empty) (*ServerList, error) {
	return nil, status.Error(codes.Unimplemented, "method ListServers not implemented")
}
func (UnimplementedManageServiceServer) TransferUsers(context.Context, *TransferUsersRequest) (*UInt32Value, error) {
	return nil, status.Error(codes.Unimplemented, "method TransferUsers not implemented")
}

// RegisterManageServiceServer attaches srv to s.
func RegisterManageServiceServer(s grpc.ServiceRegistrar, srv ManageServiceServer) {
	s.RegisterService(&ManageServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(ManageServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ManageServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ManageServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ManageServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ManageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestStop", Handler: unary(MethodRequestStop, ManageServiceServer.RequestStop)},
		{MethodName: "SetResource", Handler: unary(MethodSetResource, ManageServiceServer.SetResource)},
		{MethodName: "DeleteResource", Handler: unary(MethodDeleteResource, ManageServiceServer.DeleteResource)},
		{MethodName: "CreateNode", Handler: unary(MethodCreateNode, ManageServiceServer.CreateNode)},
		{MethodName: "CreateGroup", Handler: unary(MethodCreateGroup, ManageServiceServer.CreateGroup)},
		{MethodName: "ScheduleServer", Handler: unary(MethodScheduleServer, ManageServiceServer.ScheduleServer)},
		{MethodName: "WriteToScreen", Handler: unary(MethodWriteToScreen, ManageServiceServer.WriteToScreen)},
		{MethodName: "GetNode", Handler: unary(MethodGetNode, ManageServiceServer.GetNode)},
		{MethodName: "GetGroup", Handler: unary(MethodGetGroup, ManageServiceServer.GetGroup)},
		{MethodName: "GetServer", Handler: unary(MethodGetServer, ManageServiceServer.GetServer)},
		{MethodName: "ListNodes", Handler: unary(MethodListNodes, ManageServiceServer.ListNodes)},
		{MethodName: "ListGroups", Handler: unary(MethodListGroups, ManageServiceServer.ListGroups)},
		{MethodName: "ListServers", Handler: unary(MethodListServers, ManageServiceServer.ListServers)},
		{MethodName: "TransferUsers", Handler: unary(MethodTransferUsers, ManageServiceServer.TransferUsers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "manage",
}

// ManageServiceClient is the caller side of the manage service. Every
// call is sent with the cbor codec.
type ManageServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewManageServiceClient(cc grpc.ClientConnInterface) *ManageServiceClient {
	return &ManageServiceClient{cc: cc}
}

// Invoke performs one unary call of method, decoding the reply into out.
func (c *ManageServiceClient) Invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
