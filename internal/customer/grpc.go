package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The directory uses well-known protobuf types on the wire, so no generated
// stubs are needed: the request is the customer id as a StringValue, the
// response a Struct of profile fields.
const (
	serviceName          = "customer.v1.CustomerDirectory"
	getProfileFullMethod = "/" + serviceName + "/GetProfile"
)

type DirectoryServer interface {
	GetProfile(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

func getProfileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DirectoryServer).GetProfile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getProfileFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DirectoryServer).GetProfile(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// DirectoryServiceDesc is registered with grpc.Server.RegisterService.
var DirectoryServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProfile", Handler: getProfileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "customer/v1/directory.proto",
}

// Service serves profiles from a Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetProfile(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	p, err := s.repo.GetByID(ctx, in.GetValue())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, status.Error(codes.NotFound, "customer not found")
		}
		return nil, status.Errorf(codes.Internal, "get error: %v", err)
	}
	out, err := structpb.NewStruct(map[string]interface{}{
		"id":         p.ID,
		"username":   p.Username,
		"full_name":  p.FullName,
		"email":      p.Email,
		"phone":      p.Phone,
		"created_at": p.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode error: %v", err)
	}
	return out, nil
}

// Client looks profiles up on a remote directory.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects lazily; the first Lookup establishes the connection.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: conn, conn: conn}, nil
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Lookup(ctx context.Context, id string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getProfileFullMethod, wrapperspb.String(id), out); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("customer directory: %w", err)
	}
	f := out.GetFields()
	p := &Profile{
		ID:       f["id"].GetStringValue(),
		Username: f["username"].GetStringValue(),
		FullName: f["full_name"].GetStringValue(),
		Email:    f["email"].GetStringValue(),
		Phone:    f["phone"].GetStringValue(),
	}
	if ts := f["created_at"].GetStringValue(); ts != "" {
		p.CreatedAt, _ = time.Parse(time.RFC3339, ts)
	}
	return p, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
